package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. A token signed for one salt never verifies under another.
const (
	QRTokenSalt  = "rb.qr.v1"
	ICSTokenSalt = "rb.ics.v1"
)

var tokenMaxAge = map[string]time.Duration{
	QRTokenSalt:  7 * 24 * time.Hour,
	ICSTokenSalt: 30 * 24 * time.Hour,
}

type reservationClaims struct {
	ReservationID uint `json:"rid"`
	jwt.RegisteredClaims
}

// SignedTokens issues and verifies tamper-evident, expiring reservation references.
type SignedTokens struct {
	secret []byte
	clock  Clock
}

func NewSignedTokens(secret string, clock Clock) *SignedTokens {
	if clock == nil {
		clock = RealClock{}
	}
	return &SignedTokens{secret: []byte(secret), clock: clock}
}

// key derives a per-purpose signing key from the application secret.
func (t *SignedTokens) key(salt string) []byte {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(salt))
	return mac.Sum(nil)
}

func (t *SignedTokens) Make(salt string, reservationID uint) (string, error) {
	maxAge, ok := tokenMaxAge[salt]
	if !ok {
		return "", fmt.Errorf("unknown token purpose %q", salt)
	}
	now := t.clock.Now()
	claims := reservationClaims{
		ReservationID: reservationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{salt},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(maxAge)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key(salt))
}

// Verify returns the reservation id carried by token, or ErrTokenInvalidOrExpired.
func (t *SignedTokens) Verify(salt, token string) (uint, error) {
	invalid := fieldError(CodeTokenInvalidOrExpired, "token", "token is invalid or expired")
	if _, ok := tokenMaxAge[salt]; !ok || token == "" {
		return 0, invalid
	}
	parsed, err := jwt.ParseWithClaims(token, &reservationClaims{}, func(*jwt.Token) (interface{}, error) {
		return t.key(salt), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.clock.Now),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(salt),
	)
	if err != nil || !parsed.Valid {
		return 0, invalid
	}
	claims, ok := parsed.Claims.(*reservationClaims)
	if !ok || claims.ReservationID == 0 {
		return 0, invalid
	}
	return claims.ReservationID, nil
}

func (t *SignedTokens) MakeQRToken(reservationID uint) (string, error) {
	return t.Make(QRTokenSalt, reservationID)
}

func (t *SignedTokens) VerifyQRToken(token string) (uint, error) {
	return t.Verify(QRTokenSalt, token)
}

func (t *SignedTokens) MakeICSToken(reservationID uint) (string, error) {
	return t.Make(ICSTokenSalt, reservationID)
}

func (t *SignedTokens) VerifyICSToken(token string) (uint, error) {
	return t.Verify(ICSTokenSalt, token)
}
