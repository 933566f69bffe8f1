package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TTL is the absolute lifetime of a session token.
const TTL = 24 * time.Hour

// Token is the durable session credential. ItemID stays empty until the
// subject has been resolved against the CMS list once; after that the
// token carries the linkage and no request re-resolves it.
type Token struct {
	ID      string         // jti, addressed by the revocation store
	Subject string         // external identity subject (sub)
	ItemID  string         // resolved internal record id, "" = unresolved
	ListKey string         // list the linkage points into
	Data    map[string]any // sessionData projection of the linked record
	Expires time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	ItemID  string         `json:"itemId,omitempty"`
	ListKey string         `json:"listKey,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Codec signs and verifies session tokens with the shared session secret.
// The secret is opaque to this service; it is configured, never derived.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

func (c *Codec) Encode(t *Token) (string, error) {
	if t.Subject == "" {
		return "", errors.New("session: token missing subject")
	}

	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}
	expires := t.Expires
	if expires.IsZero() {
		expires = c.now().Add(TTL)
	}

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   t.Subject,
			IssuedAt:  jwt.NewNumericDate(c.now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		ItemID:  t.ItemID,
		ListKey: t.ListKey,
		Data:    t.Data,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	return signed, nil
}

func (c *Codec) Decode(raw string) (*Token, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("session: parse token: %w", err)
	}

	t := &Token{
		ID:      claims.ID,
		Subject: claims.Subject,
		ItemID:  claims.ItemID,
		ListKey: claims.ListKey,
		Data:    claims.Data,
	}
	if claims.ExpiresAt != nil {
		t.Expires = claims.ExpiresAt.Time
	}
	return t, nil
}
