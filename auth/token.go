package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type (
	// Claims is the payload of every token, only the connection id is carried
	Claims struct {
		ConnectionID int64 `json:"con"`
		jwt.RegisteredClaims
	}

	TokenCodec struct {
		secret []byte
	}

	InvalidToken struct {
		cause error
	}
)

var (
	errMissingConnection = errors.New("token does not carry a connection id")
)

func (i InvalidToken) Error() string {
	if i.cause == nil {
		return "invalid token"
	}
	return fmt.Sprintf("invalid token, cause %v", i.cause)
}

func (i InvalidToken) Unwrap() error {
	return i.cause
}

func NewTokenCodec(secret []byte) *TokenCodec {
	s := make([]byte, len(secret))
	copy(s, secret)
	return &TokenCodec{secret: s}
}

// Issue returns a HS256 signed token for the given connection
func (t *TokenCodec) Issue(connectionID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{ConnectionID: connectionID})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: unable to sign token for connection %v, cause %w", connectionID, err)
	}
	return signed, nil
}

// Parse verifies the signature of the token and returns the connection id
// it carries. Every failure is reported as InvalidToken.
func (t *TokenCodec) Parse(token string) (int64, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, InvalidToken{cause: err}
	}
	if !parsed.Valid {
		return 0, InvalidToken{}
	}
	if claims.ConnectionID <= 0 {
		return 0, InvalidToken{cause: errMissingConnection}
	}
	return claims.ConnectionID, nil
}
