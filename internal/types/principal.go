package types

import "github.com/google/uuid"

// Principal is the resolved identity for a request. Operations take it
// explicitly instead of reading ambient request state; a nil *Principal is
// an anonymous caller.
type Principal struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}
