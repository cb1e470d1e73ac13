package oracle

import (
	"errors"
	"fmt"

	"github.com/ruteri/package-registry/interfaces"
)

// ErrOracleKeyMismatch is returned when the signing key does not match the
// oracle key the registry trusts.
var ErrOracleKeyMismatch = errors.New("oracle signing key does not match the configured oracle public key")

// BadRequestError reports a missing or malformed request field.
type BadRequestError struct {
	Field   string
	Missing bool
	Cause   error
}

func (e *BadRequestError) Error() string {
	if e.Missing {
		return fmt.Sprintf("Missing `%s` request parameter", e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("Invalid `%s` request parameter: %s", e.Field, e.Cause)
	}
	return fmt.Sprintf("Invalid `%s` request parameter", e.Field)
}

func (e *BadRequestError) Unwrap() error {
	return e.Cause
}

// UnauthorizedError is returned when the profile does not carry the proof
// string.
type UnauthorizedError struct {
	Proof string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("Make sure you added the following text %q into your GitHub bio.", e.Proof)
}

// RegistrationRejectedError wraps a registry store failure. The store
// message is carried verbatim.
type RegistrationRejectedError struct {
	Cause error
}

func (e *RegistrationRejectedError) Error() string {
	return "Failed to call the Register RPC endpoint: " + interfaces.AsStoreError(e.Cause).Message
}

func (e *RegistrationRejectedError) Unwrap() error {
	return e.Cause
}
