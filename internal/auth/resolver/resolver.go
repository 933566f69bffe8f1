package resolver

import (
	"context"
	"errors"
)

// Result reports whether an external subject maps to exactly one record.
// Item carries at least the record id when Success is true.
type Result struct {
	Success bool
	Item    map[string]any
}

// ErrAmbiguousIdentity means more than one record claims the same external
// subject. Under identity protection this blocks sign-in outright; picking
// an arbitrary match would be an account-takeover vector.
var ErrAmbiguousIdentity = errors.New("resolver: multiple records claim this identity")

// Resolver determines which internal record an external identity belongs
// to. It is the ONLY place where identity-to-record mapping logic lives.
type Resolver interface {
	Resolve(ctx context.Context, subject any) (Result, error)
}
