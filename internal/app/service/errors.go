package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognizedSubject means the classifier found no known breed in the
	// file name. Nothing was stored; the caller should ask for another image.
	ErrUnrecognizedSubject = errors.New("image does not appear to be a dog")

	// ErrStorageFailure wraps any durable storage read or write error.
	ErrStorageFailure = errors.New("storage failure")

	// ErrRecordNotFound is returned when deleting an id that is not stored
	// (or, for owner-scoped deletes, not owned by the caller).
	ErrRecordNotFound = errors.New("record not found")

	// ErrMissingOwner is returned when an upload carries no owner id.
	ErrMissingOwner = errors.New("owner id is required")
)

// UnrecognizedMessage is shown to users whose upload was rejected.
const UnrecognizedMessage = "Please upload an image of a dog. This image does not appear to be a dog."

func storageFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
}
