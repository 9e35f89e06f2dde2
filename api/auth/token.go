package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"Board/api/apperr"

	jwt "github.com/dgrijalva/jwt-go"
	log "github.com/sirupsen/logrus"
)

const DefaultTokenTTL = 3 * time.Hour

var errTokenWindow = errors.New("token outside its validity window")

// Codec issues and validates HS256 access tokens. The key is fixed for the
// life of the process.
type Codec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewCodec returns a Codec signing with secret. A ttl of zero means
// DefaultTokenTTL.
func NewCodec(secret []byte, ttl time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: signing key must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Codec{key: key, ttl: ttl, now: time.Now}, nil
}

// NewRandomKey returns a 32 byte key for processes started without a
// configured secret. Tokens signed with it die with the process.
func NewRandomKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("auth: generate signing key: %w", err)
	}
	return key, nil
}

// Issue signs a token whose subject is the principal's username, valid for
// [now, now+ttl).
func (c *Codec) Issue(p Principal) (string, error) {
	if p.Username == "" {
		return "", errors.New("auth: cannot issue a token without a subject")
	}
	now := c.now()
	claims := jwt.StandardClaims{
		Subject:   p.Username,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(c.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// ResolveSubject verifies signature and validity window and returns the
// username. Every failure is reported as apperr.ErrInvalidToken.
func (c *Codec) ResolveSubject(tokenString string) (string, error) {
	subject, err := c.parse(tokenString)
	if err != nil {
		log.WithError(err).Debug("access token rejected")
		return "", apperr.ErrInvalidToken
	}
	return subject, nil
}

func (c *Codec) parse(tokenString string) (string, error) {
	parser := &jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	claims := &jwt.StandardClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return c.key, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token signature invalid")
	}

	// Window is checked against our own clock so it can be controlled in tests.
	now := c.now().Unix()
	if claims.IssuedAt == 0 || claims.ExpiresAt == 0 || now < claims.IssuedAt || now >= claims.ExpiresAt {
		return "", errTokenWindow
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
