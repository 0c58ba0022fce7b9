package services

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer produces the HS256 signatures the aggregator expects on collect
// and status-check requests. Signs carry no iat/exp claims, so identical
// input always yields an identical token.
type Signer struct {
	secret []byte
}

func NewSigner(pgSecretKey string) *Signer {
	return &Signer{secret: []byte(pgSecretKey)}
}

// Sign signs an arbitrary field map.
func (s *Signer) Sign(fields map[string]interface{}) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(fields))
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing payload: %w", err)
	}
	return signed, nil
}

// CreateRequestSign builds the signature for a create-collect-request call.
func (s *Signer) CreateRequestSign(schoolID, amount, callbackURL string) (string, error) {
	return s.Sign(map[string]interface{}{
		"school_id":    schoolID,
		"amount":       amount,
		"callback_url": callbackURL,
	})
}

// StatusCheckSign builds the signature for a collect-request status check.
func (s *Signer) StatusCheckSign(schoolID, collectRequestID string) (string, error) {
	return s.Sign(map[string]interface{}{
		"school_id":          schoolID,
		"collect_request_id": collectRequestID,
	})
}

// Verify parses and verifies a token produced with the same secret and
// returns its claims.
func (s *Signer) Verify(tokenString string) (map[string]interface{}, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid jwt token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", token.Claims)
	}
	return claims, nil
}
