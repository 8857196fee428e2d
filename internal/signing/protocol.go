// Package signing implements the two-step signature submission: insert
// the signature row, then refetch the petition so the confirmation
// count comes from the datastore rather than a local increment.
package signing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"groundswell/api/internal/progress"
	"groundswell/api/internal/store"
)

// Signer is the visitor-entered identity attached to one signature.
type Signer struct {
	FirstName string
	LastName  string
	Email     string
}

// Datastore is the slice of the store the protocol needs.
type Datastore interface {
	InsertSignature(ctx context.Context, item store.Signature) (store.Signature, error)
	GetPetition(ctx context.Context, petitionID string) (store.Petition, error)
}

// ValidationError is a local pre-submit failure; it never reaches the
// datastore.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// SubmissionError means the signature insert itself failed: nothing
// was recorded and the submission is safe to retry as-is.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit signature: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ConfirmationError means the signature WAS recorded but the
// confirmation refetch failed. Callers must not blindly retry the
// whole submission: that would record a duplicate signature.
type ConfirmationError struct {
	PetitionID string
	Err        error
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("signature recorded but confirmation fetch for petition %s failed: %v", e.PetitionID, e.Err)
}

func (e *ConfirmationError) Unwrap() error { return e.Err }

// Protocol records signatures against a datastore. When snapshots is
// non-nil, a successful submission also refreshes the shared petition
// snapshot so open progress views converge immediately.
type Protocol struct {
	datastore Datastore
	snapshots *progress.Store
}

func NewProtocol(datastore Datastore, snapshots *progress.Store) *Protocol {
	return &Protocol{datastore: datastore, snapshots: snapshots}
}

// Submit records one signature and returns the refreshed petition. The
// returned SignatureCount is the signer's ordinal as of the
// confirmation read: under concurrent signers it may already include
// rows committed after this one, but it is never less than the count
// that includes this signature.
func (p *Protocol) Submit(ctx context.Context, petitionID string, signer Signer) (store.Petition, error) {
	if err := validate(signer); err != nil {
		return store.Petition{}, err
	}

	_, err := p.datastore.InsertSignature(ctx, store.Signature{
		PetitionID: petitionID,
		FirstName:  strings.TrimSpace(signer.FirstName),
		LastName:   strings.TrimSpace(signer.LastName),
		Email:      strings.TrimSpace(signer.Email),
	})
	if errors.Is(err, store.ErrPetitionMissing) {
		return store.Petition{}, store.ErrNotFound
	}
	if err != nil {
		return store.Petition{}, &SubmissionError{Err: err}
	}

	petition, err := p.datastore.GetPetition(ctx, petitionID)
	if err != nil {
		return store.Petition{}, &ConfirmationError{PetitionID: petitionID, Err: err}
	}

	if p.snapshots != nil {
		p.snapshots.Set(petition)
	}
	return petition, nil
}

func validate(signer Signer) error {
	if strings.TrimSpace(signer.FirstName) == "" {
		return &ValidationError{Field: "first name"}
	}
	if strings.TrimSpace(signer.LastName) == "" {
		return &ValidationError{Field: "last name"}
	}
	if strings.TrimSpace(signer.Email) == "" {
		return &ValidationError{Field: "email"}
	}
	return nil
}
