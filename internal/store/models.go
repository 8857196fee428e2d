package store

import (
	"time"

	"groundswell/api/internal/rbac"
)

// Petition is one campaign row. SignatureCount is authoritative: it is
// maintained by InsertSignature inside the same transaction as the
// signature row, never computed or adjusted by callers.
type Petition struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Story          string    `json:"story"`
	AssessedValue  float64   `json:"assessed_value"`
	Goal           int       `json:"goal"`
	SignatureCount int       `json:"signature_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Signature is one signer's submission. Rows are immutable once written.
type Signature struct {
	ID         string    `json:"id"`
	PetitionID string    `json:"petition_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
}

// User is an account that may carry the admin role.
type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	Role         rbac.Role
}
