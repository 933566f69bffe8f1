package mapper

import (
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth"
)

// Mapping maps an internal record field name to a claim key.
type Mapping map[string]string

// Config holds the three mapping tables. It is built once at startup and
// never mutated; all callers receive it explicitly.
type Config struct {
	User    Mapping
	Account Mapping
	Profile Mapping
}

// Map folds the three claim sets into one internal field set. Tables are
// applied in fixed precedence user < account < profile, so when two tables
// target the same internal field the later source wins. Unmapped claims
// are dropped; a mapped field whose claim is absent stays absent rather
// than defaulting.
func Map(cb *auth.Callback, cfg Config) map[string]any {
	out := map[string]any{}
	apply(out, cfg.User, cb.User)
	apply(out, cfg.Account, cb.Account)
	apply(out, cfg.Profile, cb.Profile)
	return out
}

func apply(dst map[string]any, m Mapping, claims auth.ClaimSet) {
	for field, claimKey := range m {
		if v, ok := claims[claimKey]; ok {
			dst[field] = v
		}
	}
}
