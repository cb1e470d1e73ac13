package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidString is returned when a string does not fit a bounded buffer
	// or is not valid UTF-8.
	ErrInvalidString = errors.New("invalid string")

	// ErrInvalidSeeds is returned when seeds are malformed or hash to an
	// on-curve address.
	ErrInvalidSeeds = errors.New("invalid seeds, address must fall off the curve")

	// ErrDerivationExhausted is returned when no bump in the search range
	// yields an off-curve address.
	ErrDerivationExhausted = errors.New("unable to find a viable program address bump seed")

	ErrAlreadyExists = errors.New("account already in use")
	ErrNotFound      = errors.New("account does not exist")

	// ErrAccountKind is returned when an account holds a different record
	// kind than the instruction expects.
	ErrAccountKind = errors.New("account holds a different record kind")

	ErrAddressMismatch = errors.New("address does not match derived address")
	ErrProgramMismatch = errors.New("transaction targets a different program")

	// Authorization failures all read "not authorized". The ErrorCode tells
	// them apart.
	ErrInvalidOracle     = errors.New("not authorized")
	ErrAuthorityMismatch = errors.New("not authorized")
	ErrMissingSignature  = errors.New("not authorized")
	ErrInvalidSignature  = errors.New("not authorized")

	ErrInsufficientFunds    = errors.New("insufficient funds for rent")
	ErrDuplicateTransaction = errors.New("transaction has already been processed")
	ErrFaucetDisabled       = errors.New("airdrops are disabled on this ledger")
	ErrInvalidTransaction   = errors.New("invalid transaction")

	// ErrTransport marks network failures talking to a collaborator. Callers
	// may retry; nothing in this module retries on its own.
	ErrTransport = errors.New("transport error")

	// ErrBackendUnavailable is returned when an account or journal backend
	// is not accessible.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is
	// malformed or unsupported.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")

	// ErrContentNotFound is returned when a journal entry does not exist.
	ErrContentNotFound = errors.New("content not found")

	// ErrCorruptAccount is returned when persisted account data cannot be
	// decoded.
	ErrCorruptAccount = errors.New("corrupt account data")
)

// ErrorCode is the stable, wire-visible kind of a registry error.
type ErrorCode string

const (
	CodeInvalidString        ErrorCode = "InvalidString"
	CodeInvalidSeeds         ErrorCode = "InvalidSeeds"
	CodeDerivationExhausted  ErrorCode = "DerivationExhausted"
	CodeAlreadyExists        ErrorCode = "AlreadyExists"
	CodeNotFound             ErrorCode = "NotFound"
	CodeAccountKind          ErrorCode = "AccountKind"
	CodeAddressMismatch      ErrorCode = "AddressMismatch"
	CodeProgramMismatch      ErrorCode = "ProgramMismatch"
	CodeInvalidOracle        ErrorCode = "InvalidOracle"
	CodeAuthorityMismatch    ErrorCode = "AuthorityMismatch"
	CodeMissingSignature     ErrorCode = "MissingSignature"
	CodeInvalidSignature     ErrorCode = "InvalidSignature"
	CodeInsufficientFunds    ErrorCode = "InsufficientFunds"
	CodeDuplicateTransaction ErrorCode = "DuplicateTransaction"
	CodeFaucetDisabled       ErrorCode = "FaucetDisabled"
	CodeInvalidTransaction   ErrorCode = "InvalidTransaction"
	CodeTransport            ErrorCode = "TransportError"
	CodeBackendUnavailable   ErrorCode = "BackendUnavailable"
	CodeCorruptAccount       ErrorCode = "CorruptAccount"
	CodeInternal             ErrorCode = "Internal"
)

var errorCodes = []struct {
	code ErrorCode
	err  error
}{
	{CodeInvalidString, ErrInvalidString},
	{CodeInvalidSeeds, ErrInvalidSeeds},
	{CodeDerivationExhausted, ErrDerivationExhausted},
	{CodeAlreadyExists, ErrAlreadyExists},
	{CodeNotFound, ErrNotFound},
	{CodeAccountKind, ErrAccountKind},
	{CodeAddressMismatch, ErrAddressMismatch},
	{CodeProgramMismatch, ErrProgramMismatch},
	{CodeInvalidOracle, ErrInvalidOracle},
	{CodeAuthorityMismatch, ErrAuthorityMismatch},
	{CodeMissingSignature, ErrMissingSignature},
	{CodeInvalidSignature, ErrInvalidSignature},
	{CodeInsufficientFunds, ErrInsufficientFunds},
	{CodeDuplicateTransaction, ErrDuplicateTransaction},
	{CodeFaucetDisabled, ErrFaucetDisabled},
	{CodeInvalidTransaction, ErrInvalidTransaction},
	{CodeTransport, ErrTransport},
	{CodeBackendUnavailable, ErrBackendUnavailable},
	{CodeCorruptAccount, ErrCorruptAccount},
}

// CodeOf returns the error code of err, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Code
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

func sentinelFor(code ErrorCode) error {
	for _, c := range errorCodes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}

// StoreError is a registry failure with a stable code and the message
// reported by the store. Its message survives the HTTP boundary unchanged
// and errors.Is keeps matching the sentinel of its code.
type StoreError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// NewStoreError wraps kind with a formatted message.
func NewStoreError(kind error, format string, args ...any) *StoreError {
	return &StoreError{
		Code:    CodeOf(kind),
		Message: fmt.Sprintf(format, args...),
	}
}

// AsStoreError converts any error into a StoreError, keeping its message.
func AsStoreError(err error) *StoreError {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr
	}
	return &StoreError{Code: CodeOf(err), Message: err.Error()}
}

func (e *StoreError) Error() string {
	return e.Message
}

func (e *StoreError) Unwrap() error {
	return sentinelFor(e.Code)
}
