package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultPasswordLength = 12
	DefaultBcryptCost     = 12
	// bcrypt only reads the first 72 bytes and rejects longer input
	MaxPasswordBytes = 72

	passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"
)

var alphabetSize = big.NewInt(int64(len(passwordAlphabet)))

// PasswordService generates, hashes and verifies passwords. It holds no
// mutable state and is safe for concurrent use.
type PasswordService struct {
	cost   int
	length int
}

func NewPasswordService(cost, length int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if length <= 0 {
		length = DefaultPasswordLength
	}
	return &PasswordService{cost: cost, length: length}
}

// GenerateRandomPassword draws length characters uniformly from the
// password alphabet using crypto/rand. A non-positive length uses the
// configured default.
func (s *PasswordService) GenerateRandomPassword(length int) (string, error) {
	if length <= 0 {
		length = s.length
	}
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// HashPassword returns the bcrypt encoding of plain (cost, salt and digest).
// Passwords longer than MaxPasswordBytes are a validation error.
func (s *PasswordService) HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("password must not be empty")
	}
	if len(plain) > MaxPasswordBytes {
		return "", newError(KindValidation, "password: the length must be no more than %d bytes", MaxPasswordBytes)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// VerifyPassword reports whether plain matches hash. Malformed hashes never match.
func (s *PasswordService) VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NeedsRehash is true when hash was produced with a lower cost than the
// configured one, or cannot be parsed at all.
func (s *PasswordService) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < s.cost
}
