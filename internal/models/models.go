package models

import "time"

// Team is an account with one credential shared by several named members.
type Team struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose the hash
	Usernames    []string  `json:"usernames"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasMember reports whether username is one of the team's members.
func (t *Team) HasMember(username string) bool {
	for _, u := range t.Usernames {
		if u == username {
			return true
		}
	}
	return false
}

// TeamSummary is the operator view of a team.
type TeamSummary struct {
	Email     string    `json:"email"`
	Members   []string  `json:"members"`
	Documents int       `json:"documents"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is a team-owned text document.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	OwnerEmail string    `json:"owner_email"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DocumentSummary is the list view of a document.
type DocumentSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateDocumentRequest is the body of POST /documents.
type CreateDocumentRequest struct {
	Title string `json:"title"`
}

// ActivityRecord is a new activity log entry as written by the edit path.
type ActivityRecord struct {
	DocID      string
	UserEmail  string
	Action     string
	OccurredAt time.Time
	WordsAdded int
}
