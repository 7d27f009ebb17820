package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// defaultCost takes roughly 250ms per hash on current server hardware.
	defaultCost = 12

	// MinPasswordLength is the shortest password registration accepts.
	MinPasswordLength = 8

	// MaxPasswordLength is bcrypt's input limit. Longer inputs would be
	// silently truncated, so they are rejected instead.
	MaxPasswordLength = 72
)

var (
	// ErrPasswordTooShort and ErrPasswordTooLong are returned by Hash.
	ErrPasswordTooShort = fmt.Errorf("auth: password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordLength)

	// ErrInvalidPassword is returned by Verify when the password does not
	// match the hash.
	ErrInvalidPassword = errors.New("auth: invalid password")
)

// PasswordService hashes and verifies account passwords with bcrypt. The
// cost is a field so tests can run at the bcrypt minimum.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a PasswordService at the production cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// newPasswordServiceWithCost is used by the tests in this package.
func newPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest returns a PasswordService with the given cost,
// for tests in other packages (pass bcrypt.MinCost). Never use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash checks the password length policy and returns the bcrypt hash. The
// salt and cost are embedded in the returned string.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	if len(plaintext) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil if plaintext matches hash. An empty hash (a GitHub-only
// account) never matches. The comparison is constant time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if hash == "" {
		return ErrInvalidPassword
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
