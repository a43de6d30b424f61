// Package auth issues and validates device identity tokens.
//
// The app has no user accounts. Each installation receives an opaque device
// id and a signed token; preferences are stored per device id.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTypeDevice is the typ claim of device tokens.
const TokenTypeDevice = "device"

// DeviceTokenExpiry is the lifetime of an issued device token.
const DeviceTokenExpiry = 365 * 24 * time.Hour

// DefaultLeeway for token validation.
const DefaultLeeway = 30 * time.Second

// MaxDeviceIDLength bounds device ids accepted from clients.
const MaxDeviceIDLength = 64

var (
	// ErrInvalidToken is returned when token validation fails.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
	// ErrInvalidDeviceID is returned for empty or malformed device ids.
	ErrInvalidDeviceID = errors.New("invalid device id")
)

// Claims are the JWT claims of a device token. The device id is the subject.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// DeviceID returns the subject.
func (c *Claims) DeviceID() string {
	return c.Subject
}

// TokenService signs and validates device tokens with HS256.
// Tokens are signed with the current secret and accepted under either the
// current or the previous secret, so the secret can be rotated without
// invalidating installed clients.
type TokenService struct {
	currentSecret  []byte
	previousSecret []byte
	leeway         time.Duration
	now            func() time.Time
}

// NewTokenService creates a service. previousSecret may be empty.
func NewTokenService(currentSecret, previousSecret string) *TokenService {
	svc := &TokenService{
		currentSecret: []byte(currentSecret),
		leeway:        DefaultLeeway,
		now:           time.Now,
	}
	if previousSecret != "" {
		svc.previousSecret = []byte(previousSecret)
	}
	return svc
}

// NewDeviceID returns a fresh random device id.
func NewDeviceID() string {
	return uuid.NewString()
}

// ValidDeviceID reports whether id is acceptable as a preference owner:
// non-empty, bounded, and limited to letters, digits, '-' and '_'.
func ValidDeviceID(id string) bool {
	if id == "" || len(id) > MaxDeviceIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Issue signs a token for deviceID.
func (s *TokenService) Issue(deviceID string) (string, error) {
	if !ValidDeviceID(deviceID) {
		return "", ErrInvalidDeviceID
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   deviceID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(DeviceTokenExpiry)),
		},
		Type: TokenTypeDevice,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.currentSecret)
}

// Validate parses tokenString and returns its claims.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims, err := s.parse(tokenString, s.currentSecret)
	if err != nil && s.previousSecret != nil && !errors.Is(err, jwt.ErrTokenExpired) {
		claims, err = s.parse(tokenString, s.previousSecret)
	}
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims.Type != TokenTypeDevice || !ValidDeviceID(claims.Subject) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) parse(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
