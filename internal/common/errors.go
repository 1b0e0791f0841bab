// Package common defines the error taxonomy and small helpers shared by the
// realmchat server and client. Callers should use errors.Is to match both the
// individual errors and their classes.
package common

import (
	"errors"
	"fmt"
)

// Error classes. Every specific error below unwraps to exactly one class.
var (
	ErrProtocol  = errors.New("protocol error")
	ErrAuth      = errors.New("auth error")
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrTransport = errors.New("transport error")
)

// classError is a wire-visible error that belongs to one of the classes.
// Error() is the message sent back to the caller.
type classError struct {
	class error
	msg   string
}

func (e *classError) Error() string { return e.msg }
func (e *classError) Unwrap() error { return e.class }

func newClassError(class error, msg string) error {
	return &classError{class: class, msg: msg}
}

var (
	// protocol errors
	ErrInvalidProtocol     = newClassError(ErrProtocol, "Invalid Protocol")
	ErrInvalidFileEncoding = newClassError(ErrProtocol, "Invalid File Encoding")
	ErrInvalidFileName     = newClassError(ErrProtocol, "Invalid File Name")
	ErrFrameTooLarge       = newClassError(ErrProtocol, "Frame Too Large")

	// auth errors
	ErrUserNotFound  = newClassError(ErrAuth, "User Not Found")
	ErrBadCredential = newClassError(ErrAuth, "Incorrect Password")
	ErrUnauthorized  = newClassError(ErrAuth, "Unauthorized")

	// lookup errors
	ErrRecipientNotFound = newClassError(ErrNotFound, "Recipient Not Found")
	ErrRealmNotFound     = newClassError(ErrNotFound, "Realm Not Found")

	// conflicts
	ErrUserAlreadyExists  = newClassError(ErrConflict, "User Already Exists")
	ErrRealmAlreadyExists = newClassError(ErrConflict, "Realm Already Exists")

	// federation transport
	ErrRealmLinkDown    = newClassError(ErrTransport, "Realm Link Down")
	ErrRealmUnreachable = newClassError(ErrTransport, "Realm Unreachable")
)

// RecipientNotFoundError names the recipient that stopped a group delivery.
type RecipientNotFoundError struct {
	Username string
}

func (e *RecipientNotFoundError) Error() string {
	return fmt.Sprintf("Recipient %s Not Found", e.Username)
}

func (e *RecipientNotFoundError) Unwrap() error { return ErrRecipientNotFound }

// IsClassified reports whether err belongs to one of the error classes, i.e.
// whether its message is safe to send to the caller as is.
func IsClassified(err error) bool {
	for _, class := range []error{ErrProtocol, ErrAuth, ErrNotFound, ErrConflict, ErrTransport} {
		if errors.Is(err, class) {
			return true
		}
	}
	return false
}

// PublicMessage returns the message reported to the caller for err. Errors
// outside the taxonomy collapse to a generic message.
func PublicMessage(err error) string {
	var rnf *RecipientNotFoundError
	if errors.As(err, &rnf) {
		return rnf.Error()
	}
	var ce *classError
	if errors.As(err, &ce) {
		return ce.msg
	}
	return "Internal Error"
}
