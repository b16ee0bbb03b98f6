package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleKiosk is the role carried by tokens that may open ordering sessions
const RoleKiosk = "kiosk"

// KioskTokenTTL is how long a kiosk token stays valid
const KioskTokenTTL = 12 * time.Hour

// ErrInvalidAccessCode is returned when a kiosk presents the wrong access code
var ErrInvalidAccessCode = errors.New("invalid access code")

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	KioskID string `json:"kiosk_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and validates kiosk tokens
type Issuer struct {
	secret     []byte
	accessCode string
	now        func() time.Time
}

// NewIssuer creates an issuer. accessCode is what kiosks exchange for a token.
func NewIssuer(secret, accessCode string) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessCode: accessCode,
		now:        time.Now,
	}
}

// IssueKioskToken returns a token for kioskID when accessCode matches
func (i *Issuer) IssueKioskToken(kioskID, accessCode string) (string, time.Time, error) {
	if subtle.ConstantTimeCompare([]byte(accessCode), []byte(i.accessCode)) != 1 {
		return "", time.Time{}, ErrInvalidAccessCode
	}

	now := i.now()
	expiresAt := now.Add(KioskTokenTTL)
	claims := &JWTClaims{
		KioskID: kioskID,
		Role:    RoleKiosk,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the claims
func (i *Issuer) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}
