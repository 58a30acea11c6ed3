package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

type (
	Operation string

	// Pending is the operation waiting for a confirmation code
	Pending struct {
		Operation Operation `json:"operation"`
		Username  string    `json:"username,omitempty"`
		Email     string    `json:"email,omitempty"`
		UserID    int64     `json:"user_id,omitempty"`
		Password  string    `json:"password,omitempty"`
	}

	// CodeStore keeps pending operations indexed by their confirmation code.
	//
	// Implementations must be safe for concurrent use, and must report
	// expired entries as absent even if Sweep was not called yet.
	CodeStore interface {
		Put(ctx context.Context, code string, p Pending) error
		// Get does not remove the entry
		Get(ctx context.Context, code string) (Pending, bool, error)
		Delete(ctx context.Context, code string) error
		// Sweep removes expired entries and returns how many were removed
		Sweep(ctx context.Context) (int, error)
	}
)

const (
	OpRegister = Operation("register")
	OpLogin    = Operation("login")
	OpPassword = Operation("password")

	codeDigits = 6
)

var (
	codeSpace = big.NewInt(1_000_000)
)

// NewCode returns a random six digit code read from random (crypto/rand
// when nil). Codes are not checked against the codes already issued.
func NewCode(random io.Reader) (string, error) {
	if random == nil {
		random = rand.Reader
	}
	n, err := rand.Int(random, codeSpace)
	if err != nil {
		return "", fmt.Errorf("auth: unable to generate confirmation code, cause %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
