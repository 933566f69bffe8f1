package resolver

import (
	"context"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/keystone"
)

// ListResolver resolves identities against a CMS list by equality on the
// configured identity field. Read-only and idempotent.
type ListResolver struct {
	list              keystone.ListAPI
	identityField     string
	protectIdentities bool
}

func NewListResolver(list keystone.ListAPI, identityField string, protectIdentities bool) *ListResolver {
	return &ListResolver{
		list:              list,
		identityField:     identityField,
		protectIdentities: protectIdentities,
	}
}

func (r *ListResolver) Resolve(ctx context.Context, subject any) (Result, error) {
	subject, ok := normalizeSubject(subject)
	if !ok {
		// Never query with an absent identity value: it would match
		// records whose identity field is null, e.g. password-only
		// accounts that were never linked.
		return Result{}, nil
	}

	items, err := r.list.FindMany(ctx, map[string]any{r.identityField: subject}, "id")
	if err != nil {
		return Result{}, err
	}

	switch {
	case len(items) == 0:
		return Result{}, nil
	case len(items) == 1:
		return Result{Success: true, Item: items[0]}, nil
	case r.protectIdentities:
		return Result{}, ErrAmbiguousIdentity
	default:
		return Result{Success: true, Item: items[0]}, nil
	}
}

// normalizeSubject keeps string and numeric subjects as-is. Anything else
// reports false so the caller degrades to "no match" without querying,
// instead of failing the whole attempt.
func normalizeSubject(subject any) (any, bool) {
	switch subject.(type) {
	case string, int, int32, int64, float32, float64:
		return subject, true
	default:
		return nil, false
	}
}
