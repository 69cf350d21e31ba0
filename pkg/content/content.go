package content

import "time"

// Type identifies what kind of content a record holds.
type Type string

const (
	TypePost    Type = "post"
	TypeComment Type = "comment"
	TypeMessage Type = "message"
)

// AllTypes returns all known content types.
func AllTypes() []Type {
	return []Type{TypePost, TypeComment, TypeMessage}
}

// Valid reports whether t is a known content type.
func (t Type) Valid() bool {
	switch t {
	case TypePost, TypeComment, TypeMessage:
		return true
	}
	return false
}

// Record is the standardized data model for fetched content, pre-persistence.
// Comments carry ParentID referencing their post's content ID.
type Record struct {
	Type      Type      `json:"content_type" db:"content_type"`
	ID        string    `json:"content_id" db:"content_id"`
	ParentID  string    `json:"parent_id,omitempty" db:"parent_id"`
	AuthorID  string    `json:"author_id,omitempty" db:"author_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Key is the identity of a record within a store. Two records with the
// same key are the same piece of content regardless of where they were
// fetched from.
type Key struct {
	Type Type
	ID   string
}

// Key returns the record's identity key.
func (r Record) Key() Key {
	return Key{Type: r.Type, ID: r.ID}
}
