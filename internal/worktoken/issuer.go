package worktoken

import (
	"time"

	"golang.org/x/sync/singleflight"
)

// Issuer coalesces concurrent mint requests for the same event so a burst
// of "current QR" calls produces one capsule instead of racing. The
// in-flight result is shared until resolution and then cleared, so every
// later burst mints a fresh capsule.
type Issuer struct {
	group singleflight.Group
	mint  func(eventID string, ttl time.Duration) (Token, error)
}

// NewIssuer creates an Issuer backed by Issue.
func NewIssuer() *Issuer {
	return &Issuer{mint: Issue}
}

// Current returns a capsule for the event valid for ttl. Callers arriving
// while a mint for the same event is in flight receive the same capsule.
func (i *Issuer) Current(eventID string, ttl time.Duration) (Token, error) {
	v, err, _ := i.group.Do(eventID, func() (any, error) {
		return i.mint(eventID, ttl)
	})
	if err != nil {
		return Token{}, err
	}
	return v.(Token), nil
}
