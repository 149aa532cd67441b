package document

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a stage change would move backwards,
	// skip a prerequisite, or leave a terminal stage
	ErrInvalidTransition = errors.New("document: invalid stage transition")
	// ErrArtifactRequired is returned when a stage needs an artifact ID that was not supplied
	ErrArtifactRequired = fmt.Errorf("%w: artifact id required", ErrInvalidTransition)
	// ErrAlreadyFailed is returned when a failed document is failed again with a different reason
	ErrAlreadyFailed = errors.New("document: already failed with a different reason")
	// ErrNotOwner is returned when someone other than the owner deletes a document
	ErrNotOwner = errors.New("document: requester is not the owner")
)
