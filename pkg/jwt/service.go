package jwt

import (
	"time"
)

// Service is a wrapper for token operations with an explicit secret and
// expiry, so handlers never reach into the environment themselves.
type Service struct {
	secretKey string
	expiry    time.Duration
}

// NewService creates a new JWT service
func NewService(secretKey string, expiry time.Duration) *Service {
	if secretKey == "" {
		secretKey = getSecretKey()
	}

	if expiry == 0 {
		expiry = DefaultExpiry
	}

	return &Service{
		secretKey: secretKey,
		expiry:    expiry,
	}
}

// GenerateToken issues a signed token for a user
func (s *Service) GenerateToken(userID, email, name string) (string, error) {
	return generateToken(s.secretKey, s.expiry, userID, email, name)
}

// ValidateToken validates a token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return validateToken(s.secretKey, tokenString)
}
