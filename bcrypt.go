package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the single minimum applied when a password is
	// chosen, at signup and on password change.
	MinPasswordLength = 8
	// MaxPasswordBytes is the bcrypt input limit
	MaxPasswordBytes = 72
)

// PolicyResult reports whether a candidate secret meets the password policy
type PolicyResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// CredentialVerifier hashes secrets and checks them against stored hashes
type CredentialVerifier struct {
	cost int
}

// NewCredentialVerifier returns a verifier using the given bcrypt cost.
// Out of range costs fall back to the build default.
func NewCredentialVerifier(cost ...int) *CredentialVerifier {
	c := passwordHashCost()
	if len(cost) > 0 && cost[0] >= bcrypt.MinCost && cost[0] <= bcrypt.MaxCost {
		c = cost[0]
	}
	return &CredentialVerifier{cost: c}
}

// Cost returns the bcrypt cost used for new hashes
func (v *CredentialVerifier) Cost() int {
	return v.cost
}

// Hash returns a salted bcrypt hash of secret. Hashing the same
// secret twice yields different outputs. Secrets longer than
// MaxPasswordBytes are digested first, see bcryptInput.
func (v *CredentialVerifier) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword(bcryptInput(secret), v.cost)
	if err != nil {
		return "", hashingFailure(err)
	}
	return string(h), nil
}

// Verify reports whether secret matches hashed. A malformed hash
// never matches.
func (v *CredentialVerifier) Verify(secret, hashed string) bool {
	return v.Compare(secret, hashed) == nil
}

// Compare is the error returning form of Verify. Mismatches and
// malformed hashes both yield ErrMismatchedHashAndPassword.
func (v *CredentialVerifier) Compare(secret, hashed string) error {
	if hashed == "" {
		return ErrMismatchedHashAndPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), bcryptInput(secret)); err != nil {
		return ErrMismatchedHashAndPassword
	}
	return nil
}

// bcryptInput returns secret unchanged when bcrypt accepts it. Longer
// secrets are replaced by their base64 SHA-256 digest so every byte counts.
func bcryptInput(secret string) []byte {
	if len(secret) <= MaxPasswordBytes {
		return []byte(secret)
	}
	sum := sha256.Sum256([]byte(secret))
	return []byte(base64.RawStdEncoding.EncodeToString(sum[:]))
}

// ValidatePasswordPolicy checks secret against the password policy
func (v *CredentialVerifier) ValidatePasswordPolicy(secret string) PolicyResult {
	return ValidatePasswordPolicy(secret)
}

// ValidatePasswordPolicy checks secret against the password policy.
// Length is counted in runes, the byte limit is bcrypt's.
func ValidatePasswordPolicy(secret string) PolicyResult {
	err := validation.Validate(secret,
		validation.Required.Error("password is required"),
		validation.RuneLength(MinPasswordLength, 0).Error("password must be at least 8 characters"),
		validation.By(maxBytes(MaxPasswordBytes)),
	)
	if err != nil {
		return PolicyResult{Valid: false, Reason: err.Error()}
	}
	return PolicyResult{Valid: true}
}

func maxBytes(limit int) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if len(s) > limit {
			return errors.New("password must be at most 72 bytes")
		}
		if !utf8.ValidString(s) {
			return errors.New("password must be valid UTF-8")
		}
		return nil
	}
}

var defaultVerifier = NewCredentialVerifier()

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	return defaultVerifier.Hash(password)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	return defaultVerifier.Compare(password, hash)
}

// VerifyPassword is the boolean form of ComparePasswordAndHash
func VerifyPassword(password, hash string) bool {
	return defaultVerifier.Verify(password, hash)
}

// RandomPasswordHash is a hash nobody knows the secret for.
// Seeded accounts use it until a password is set.
func RandomPasswordHash() string {
	h, err := HashPassword(uuid.NewString())
	if err != nil {
		return RandomPasswordHash()
	}
	return h
}
