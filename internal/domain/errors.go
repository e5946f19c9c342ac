package domain

import "errors"

var (
	// ErrBankNotFound indicates the subject's question bank could not be located.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrEmptyBank indicates a bank loaded successfully but contains no questions.
	ErrEmptyBank = errors.New("question bank is empty")
	// ErrMalformedBank indicates the bank document could not be parsed.
	ErrMalformedBank = errors.New("question bank is malformed")
	// ErrSessionNotFound is returned when a client acts before starting a session.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrUnknownSubject indicates a subject identifier outside the catalog.
	ErrUnknownSubject = errors.New("unknown subject")
)
