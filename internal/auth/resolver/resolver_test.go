package resolver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/resolver"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/keystone"
)

func seedList(t *testing.T, subjects ...string) *keystone.MemoryList {
	t.Helper()
	list := keystone.NewMemoryList("")
	for _, s := range subjects {
		if _, err := list.CreateOne(context.Background(), map[string]any{"subjectId": s}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return list
}

func TestResolve_NoMatch(t *testing.T) {
	r := resolver.NewListResolver(seedList(t, "other"), "subjectId", true)

	res, err := r.Resolve(context.Background(), "subj-1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Success {
		t.Errorf("Resolve().Success = true, want false")
	}
}

func TestResolve_SingleMatch(t *testing.T) {
	r := resolver.NewListResolver(seedList(t, "subj-1", "other"), "subjectId", true)

	res, err := r.Resolve(context.Background(), "subj-1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !res.Success {
		t.Fatalf("Resolve().Success = false, want true")
	}
	if res.Item["id"] == nil {
		t.Errorf("Resolve().Item missing id: %v", res.Item)
	}
}

func TestResolve_AmbiguousFailsClosed(t *testing.T) {
	r := resolver.NewListResolver(seedList(t, "subj-1", "subj-1"), "subjectId", true)

	_, err := r.Resolve(context.Background(), "subj-1")
	if !errors.Is(err, resolver.ErrAmbiguousIdentity) {
		t.Errorf("Resolve() error = %v, want ErrAmbiguousIdentity", err)
	}
}

func TestResolve_AmbiguousWithoutProtection(t *testing.T) {
	r := resolver.NewListResolver(seedList(t, "subj-1", "subj-1"), "subjectId", false)

	res, err := r.Resolve(context.Background(), "subj-1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !res.Success {
		t.Errorf("Resolve().Success = false, want first match")
	}
}

func TestResolve_NumericSubject(t *testing.T) {
	list := keystone.NewMemoryList("")
	if _, err := list.CreateOne(context.Background(), map[string]any{"subjectId": 42}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := resolver.NewListResolver(list, "subjectId", true)

	// JSON-decoded numbers arrive as float64.
	res, err := r.Resolve(context.Background(), float64(42))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !res.Success {
		t.Errorf("Resolve().Success = false, want true for numeric subject")
	}
}

func TestResolve_UnexpectedSubjectType(t *testing.T) {
	r := resolver.NewListResolver(seedList(t, "subj-1"), "subjectId", true)

	res, err := r.Resolve(context.Background(), []string{"not", "a", "subject"})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want graceful no-match", err)
	}
	if res.Success {
		t.Errorf("Resolve().Success = true, want false for unexpected type")
	}
}

func TestResolve_UnexpectedSubjectSkipsUnlinkedRecords(t *testing.T) {
	// A password-only account carries a null identity field. A subject
	// of an unexpected type must not degrade into a null lookup and
	// claim such a record.
	list := keystone.NewMemoryList("")
	if _, err := list.CreateOne(context.Background(), map[string]any{
		"subjectId": nil,
		"email":     "pw-only@example.com",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := resolver.NewListResolver(list, "subjectId", true)

	for _, subject := range []any{[]string{"garbage"}, nil, map[string]any{}} {
		res, err := r.Resolve(context.Background(), subject)
		if err != nil {
			t.Fatalf("Resolve(%T) error = %v", subject, err)
		}
		if res.Success {
			t.Errorf("Resolve(%T) matched an unlinked record: %v", subject, res.Item)
		}
	}
}
