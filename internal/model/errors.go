package model

import "errors"

var (
	// User / auth related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")

	// Token related errors
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")

	// Recovery related errors
	ErrUnknownEntity      = errors.New("unknown recovery entity")
	ErrRecordNotFound     = errors.New("record not found")
	ErrNotRecoverable     = errors.New("record not recoverable")
	ErrArchiveUnavailable = errors.New("archive table unavailable")
	ErrConfirmMismatch    = errors.New("confirmation phrase mismatch")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
