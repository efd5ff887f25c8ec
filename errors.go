package auth

import (
	"net/http"

	"github.com/goliatone/go-errors"
)

// Text codes carried by the package errors. Use them, or the Is*
// helpers, to classify errors: wrapping a go-errors value clones it.
const (
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeUnauthenticated     = "UNAUTHENTICATED"
	TextCodeInsufficientRole    = "INSUFFICIENT_ROLE"
	TextCodeStoreUnavailable    = "STORE_UNAVAILABLE"
	TextCodeHashingFailure      = "HASHING_FAILURE"
	TextCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	TextCodeIdentityNotFound    = "IDENTITY_NOT_FOUND"
	TextCodeWeakPassword        = "WEAK_PASSWORD"
	TextCodeInsecureSigningKey  = "INSECURE_SIGNING_KEY"
	TextCodeIdentityExists      = "IDENTITY_EXISTS"
	TextCodeEmptyString         = "EMPTY_STRING"
	TextCodeMissingCollaborator = "MISSING_COLLABORATOR"
	TextCodeInvalidRole         = "INVALID_ROLE"
)

var (
	// ErrTokenMalformed bad signature, wrong structure or unsupported algorithm
	ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
				WithCode(errors.CodeUnauthorized).
				WithTextCode(TextCodeTokenMalformed)

	// ErrTokenExpired signature checks out but the token is past expiresAt
	ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized).
			WithTextCode(TextCodeTokenExpired)

	// ErrUnauthenticated request carries no valid token
	ErrUnauthenticated = errors.New("authentication required", errors.CategoryAuth).
				WithCode(errors.CodeUnauthorized).
				WithTextCode(TextCodeUnauthenticated)

	// ErrInsufficientRole valid token, role does not meet the path requirement
	ErrInsufficientRole = errors.New("insufficient role", errors.CategoryAuthz).
				WithCode(errors.CodeForbidden).
				WithTextCode(TextCodeInsufficientRole)

	// ErrStoreUnavailable user store could not answer a lookup
	ErrStoreUnavailable = errors.New("authorization temporarily unavailable", errors.CategoryExternal).
				WithCode(http.StatusServiceUnavailable).
				WithTextCode(TextCodeStoreUnavailable)

	// ErrHashingFailure hashing could not complete. The message is
	// intentionally generic.
	ErrHashingFailure = errors.New("unable to process credentials", errors.CategoryInternal).
				WithCode(errors.CodeInternal).
				WithTextCode(TextCodeHashingFailure)

	// ErrMismatchedHashAndPassword is returned for unknown users and wrong passwords alike
	ErrMismatchedHashAndPassword = errors.New("invalid credentials", errors.CategoryAuth).
					WithCode(errors.CodeUnauthorized).
					WithTextCode(TextCodeInvalidCredentials)

	// ErrIdentityNotFound is the error we return for non found identities
	ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound).
				WithTextCode(TextCodeIdentityNotFound)

	// ErrIdentityExists an account with the same email is already registered
	ErrIdentityExists = errors.New("identity already exists", errors.CategoryConflict).
				WithCode(errors.CodeConflict).
				WithTextCode(TextCodeIdentityExists)

	// ErrWeakPassword password does not meet the policy
	ErrWeakPassword = errors.New("password does not meet policy", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest).
			WithTextCode(TextCodeWeakPassword)

	// ErrInsecureSigningKey signing key is empty, short or a known default
	ErrInsecureSigningKey = errors.New("signing key is missing or insecure", errors.CategoryBadInput).
				WithTextCode(TextCodeInsecureSigningKey)

	// ErrInvalidRole role is outside the known set
	ErrInvalidRole = errors.New("invalid role", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithTextCode(TextCodeInvalidRole)

	// ErrNoEmptyString input must not be empty
	ErrNoEmptyString = errors.New("empty string not allowed", errors.CategoryBadInput).
				WithCode(errors.CodeBadRequest).
				WithTextCode(TextCodeEmptyString)
)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return hasTextCode(err, TextCodeTokenExpired)
}

// IsMalformedError will check for malformed tokens
func IsMalformedError(err error) bool {
	return hasTextCode(err, TextCodeTokenMalformed)
}

// IsStoreUnavailableError reports a failed user store lookup
func IsStoreUnavailableError(err error) bool {
	return hasTextCode(err, TextCodeStoreUnavailable)
}

// IsInvalidCredentialsError reports a failed credential check
func IsInvalidCredentialsError(err error) bool {
	return hasTextCode(err, TextCodeInvalidCredentials)
}

// IsIdentityNotFoundError reports a missing user record
func IsIdentityNotFoundError(err error) bool {
	return hasTextCode(err, TextCodeIdentityNotFound)
}

// IsWeakPasswordError reports a password policy violation
func IsWeakPasswordError(err error) bool {
	return hasTextCode(err, TextCodeWeakPassword)
}

// IsInsecureSigningKeyError reports a rejected signing key
func IsInsecureSigningKeyError(err error) bool {
	return hasTextCode(err, TextCodeInsecureSigningKey)
}

// IsIdentityExistsError reports a duplicate registration
func IsIdentityExistsError(err error) bool {
	return hasTextCode(err, TextCodeIdentityExists)
}

// IsInvalidRoleError reports a role outside the known set
func IsInvalidRoleError(err error) bool {
	return hasTextCode(err, TextCodeInvalidRole)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

func storeUnavailable(err error, op string) *errors.Error {
	return errors.Wrap(err, errors.CategoryExternal, ErrStoreUnavailable.Message).
		WithCode(ErrStoreUnavailable.Code).
		WithTextCode(TextCodeStoreUnavailable).
		WithMetadata(map[string]any{"operation": op})
}

func weakPassword(reason string) *errors.Error {
	e := ErrWeakPassword.Clone()
	e.Message = reason
	return e.WithMetadata(map[string]any{"policy_min_length": MinPasswordLength})
}

func hashingFailure(err error) *errors.Error {
	return errors.Wrap(err, errors.CategoryInternal, ErrHashingFailure.Message).
		WithCode(ErrHashingFailure.Code).
		WithTextCode(TextCodeHashingFailure)
}
