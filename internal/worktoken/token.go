// Package worktoken mints and validates the time-limited authorization
// capsules workers scan to clock in and out. Validation is a pure function
// of the serialized token and the supplied clock reading; no store access
// is needed to reject an expired or malformed token.
package worktoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType tags the wire envelope so clients can reject capsules minted
// by unrelated subsystems before attempting validation.
const TokenType = "work-hours"

const secretEnvVariable = "PROSTAFF_TOKEN_SECRET"

var (
	// ErrTokenExpired indicates the capsule's own deadline has passed.
	ErrTokenExpired = errors.New("work token expired")
	// ErrTokenMalformed covers bad signatures, foreign token types and
	// undecodable payloads.
	ErrTokenMalformed = errors.New("work token malformed")

	errMissingSecret = errors.New("work token secret is not configured")

	secretMu sync.Mutex
	secret   cachedSecret
)

type cachedSecret struct {
	value []byte
	err   error
	ready bool
}

// Token is a minted capsule plus its metadata. Tokens are never persisted;
// they are reconstructible from the serialized form and the signing secret.
type Token struct {
	EventID    string
	Serialized string
	Nonce      string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Envelope is the wire format handed to clients for rendering as a QR code.
type Envelope struct {
	Type      string    `json:"type"`
	EventID   string    `json:"eventId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims carried inside the signed capsule.
type Claims struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`
	jwt.RegisteredClaims
}

// Issue mints a capsule for the event, valid for ttl from now. Re-issuing
// does not revoke earlier capsules; each carries its own deadline.
func Issue(eventID string, ttl time.Duration) (Token, error) {
	return issueAt(eventID, ttl, time.Now().UTC())
}

func issueAt(eventID string, ttl time.Duration, now time.Time) (Token, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return Token{}, errors.New("eventID is required")
	}
	if ttl <= 0 {
		return Token{}, errors.New("ttl must be greater than zero")
	}
	key, err := signingKey(eventID)
	if err != nil {
		return Token{}, err
	}

	// JWT timestamps are second-granular on the wire; keep the metadata in
	// step with what the capsule actually says.
	now = now.Truncate(time.Second)
	expiresAt := now.Add(ttl).Truncate(time.Second)
	nonce := uuid.NewString()

	claims := Claims{
		Type:    TokenType,
		EventID: eventID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        nonce,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return Token{}, err
	}
	return Token{
		EventID:    eventID,
		Serialized: signed,
		Nonce:      nonce,
		IssuedAt:   now,
		ExpiresAt:  expiresAt,
	}, nil
}

// Validate checks the capsule against the supplied clock reading and returns
// the event it is bound to. The validity window is [issuedAt, expiresAt):
// a capsule is live strictly while now precedes expiresAt and is expired at
// the deadline itself.
func Validate(serialized string, now time.Time) (string, error) {
	serialized = strings.TrimSpace(serialized)
	if serialized == "" {
		return "", ErrTokenMalformed
	}

	parsed, err := jwt.ParseWithClaims(serialized, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenMalformed
		}
		claims, ok := t.Claims.(*Claims)
		if !ok {
			return nil, ErrTokenMalformed
		}
		return signingKey(claims.EventID)
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		if errors.Is(err, errMissingSecret) {
			return "", errMissingSecret
		}
		return "", ErrTokenMalformed
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", ErrTokenMalformed
	}
	if claims.Type != TokenType {
		return "", ErrTokenMalformed
	}
	if strings.TrimSpace(claims.EventID) == "" || claims.ExpiresAt == nil {
		return "", ErrTokenMalformed
	}
	return claims.EventID, nil
}

// Envelope wraps the capsule in its wire format.
func (t Token) Envelope() Envelope {
	return Envelope{
		Type:      TokenType,
		EventID:   t.EventID,
		Token:     t.Serialized,
		ExpiresAt: t.ExpiresAt,
	}
}

// QRPayload returns the envelope as base64-encoded JSON for direct rendering.
func (t Token) QRPayload() (string, error) {
	data, err := json.Marshal(t.Envelope())
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeEnvelope parses a scanned payload, inverting QRPayload, and
// rejects foreign token types.
func DecodeEnvelope(payload string) (Envelope, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Envelope{}, ErrTokenMalformed
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, ErrTokenMalformed
	}
	if env.Type != TokenType {
		return Envelope{}, ErrTokenMalformed
	}
	return env, nil
}

// signingKey derives a per-event key from the shared secret so a capsule
// for one event can never verify against another.
func signingKey(eventID string) ([]byte, error) {
	base, err := loadSecret()
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, base)
	mac.Write([]byte(eventID))
	return mac.Sum(nil), nil
}

func loadSecret() ([]byte, error) {
	secretMu.Lock()
	defer secretMu.Unlock()
	if secret.ready {
		return secret.value, secret.err
	}
	raw := strings.TrimSpace(os.Getenv(secretEnvVariable))
	if raw == "" {
		secret.err = errMissingSecret
		secret.ready = true
		return nil, secret.err
	}
	secret.value = []byte(raw)
	secret.err = nil
	secret.ready = true
	return secret.value, nil
}

// ResetSecretForTests clears the cached secret value. Only intended for test use.
func ResetSecretForTests() {
	secretMu.Lock()
	defer secretMu.Unlock()
	secret = cachedSecret{}
}
