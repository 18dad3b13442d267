package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Validation limits for request fields
const (
	MaxTitleLength    = 255
	MaxUsernameLength = 64
	MaxMembers        = 100
)

// ParseDocumentID parses a document id from URL parameters.
func ParseDocumentID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid document id: %w", err)
	}
	return id, nil
}

// NormalizeTitle trims a document title and rejects blank or oversized ones.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", fmt.Errorf("title must be at most %d characters", MaxTitleLength)
	}
	return title, nil
}

// NormalizeUsername trims a member name and checks its length.
func NormalizeUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("username is required")
	}
	if utf8.RuneCountInString(name) > MaxUsernameLength {
		return "", fmt.Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	return name, nil
}

// NormalizeUsernames trims member names, drops blanks and duplicates, and
// keeps first-seen order. Returns an error if nothing usable remains.
func NormalizeUsernames(names []string) ([]string, error) {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, raw := range names {
		name, err := NormalizeUsername(raw)
		if err != nil {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			return nil, err
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one username is required")
	}
	if len(out) > MaxMembers {
		return nil, fmt.Errorf("at most %d members are allowed", MaxMembers)
	}
	return out, nil
}
