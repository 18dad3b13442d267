package db

import "errors"

// Sentinel errors for type-safe error checking
// Use errors.Is() instead of string comparison
var (
	// Team errors
	ErrTeamNotFound = errors.New("team not found")
	ErrTeamExists   = errors.New("team with this email already exists")

	// Member errors
	ErrMemberExists   = errors.New("member already exists")
	ErrMemberNotFound = errors.New("member not found")
	ErrLastMember     = errors.New("cannot remove the last member")

	// Document errors
	ErrDocumentNotFound = errors.New("document not found")
)
