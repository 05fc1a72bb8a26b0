package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tutorhub/backend/internal/models"
)

var (
	// ErrInvalidToken indicates the token is malformed or carries a bad signature.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates the token was valid but its expiry has passed.
	ErrExpiredToken = errors.New("token expired")
)

// Claims is the verified payload of a session token. RoleHint mirrors the
// role embedded at issue time and must never drive authorization decisions;
// the persisted user record is the only authority.
type Claims struct {
	SubjectID string
	RoleHint  models.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and verifies HS256-signed session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService constructs a token service with the given signing secret
// and expiry window.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a signed token bound to the subject identifier.
func (s *TokenService) Issue(subjectID string, role models.Role) (string, error) {
	if subjectID == "" {
		return "", errors.New("subject id must be provided")
	}

	now := s.now().UTC()
	claims := jwt.MapClaims{
		"sub":  subjectID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the signature and expiry of a raw token. It always returns
// a definite result: valid claims or one of the sentinel errors.
func (s *TokenService) Verify(raw string) (Claims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	sub, ok := mapClaims["sub"].(string)
	if !ok || sub == "" {
		return Claims{}, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}

	claims := Claims{SubjectID: sub}
	if role, ok := mapClaims["role"].(string); ok && models.Role(role).Valid() {
		claims.RoleHint = models.Role(role)
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}

// WithNowFunc overrides the time source. Used by tests.
func (s *TokenService) WithNowFunc(now func() time.Time) {
	s.now = now
}
