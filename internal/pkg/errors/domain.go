package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/mindspero/mindspero/internal/domain/admin"
	"github.com/mindspero/mindspero/internal/domain/document"
	"github.com/mindspero/mindspero/internal/domain/payment"
	"github.com/mindspero/mindspero/internal/domain/subscription"
)

// FromDomain translates a domain sentinel error into an AppError. Errors that
// are already AppErrors pass through; anything unknown becomes a 500.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stderrors.Is(err, document.ErrNotOwner):
		return Wrap(err, ErrCodeNotOwner, "You do not own this document", http.StatusForbidden)
	case stderrors.Is(err, document.ErrAlreadyFailed):
		return Wrap(err, ErrCodeAlreadyFailed, "Document already failed with a different reason", http.StatusConflict)
	case stderrors.Is(err, document.ErrInvalidTransition):
		return Wrap(err, ErrCodeInvalidTransition, "Document cannot move to the requested stage", http.StatusConflict)
	case stderrors.Is(err, subscription.ErrAlreadyTrialed):
		return Wrap(err, ErrCodeAlreadyTrialed, "The free trial has already been used", http.StatusConflict)
	case stderrors.Is(err, subscription.ErrNotActive):
		return Wrap(err, ErrCodeNotActive, "Subscription is not active", http.StatusConflict)
	case stderrors.Is(err, subscription.ErrInvalidState):
		return Wrap(err, ErrCodeInvalidState, "Subscription is not in a valid state for this operation", http.StatusUnprocessableEntity)
	case stderrors.Is(err, subscription.ErrConflict):
		return Wrap(err, ErrCodeConflict, "Subscription was updated concurrently, please retry", http.StatusConflict)
	case stderrors.Is(err, payment.ErrDuplicateReference):
		return Wrap(err, ErrCodeConflict, "Payment already recorded", http.StatusConflict)
	case stderrors.Is(err, admin.ErrInvalidFilter):
		return Wrap(err, ErrCodeBadRequest, err.Error(), http.StatusBadRequest)
	}
	return Internal("Internal server error", err)
}

// IsCode reports whether err is, or wraps, an AppError with the given code
func IsCode(err error, code string) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound reports whether err is a not-found AppError
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound)
}
