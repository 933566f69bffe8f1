package session_test

import (
	"context"
	"testing"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/resolver"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/keystone"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/session"
)

// countingResolver counts Resolve calls to prove cached tokens skip it.
type countingResolver struct {
	inner resolver.Resolver
	calls int
}

func (c *countingResolver) Resolve(ctx context.Context, subject any) (resolver.Result, error) {
	c.calls++
	return c.inner.Resolve(ctx, subject)
}

func newFixture(t *testing.T, sessionData string, records ...map[string]any) (*session.Materializer, *countingResolver) {
	t.Helper()
	list := keystone.NewMemoryList("subjectId")
	for _, r := range records {
		if _, err := list.CreateOne(context.Background(), r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	res := &countingResolver{inner: resolver.NewListResolver(list, "subjectId", true)}
	return session.NewMaterializer(res, list, "User", sessionData), res
}

func TestRefresh_PopulatesToken(t *testing.T) {
	m, _ := newFixture(t, "", map[string]any{"id": "42", "subjectId": "S"})

	tok, err := m.Refresh(context.Background(), &session.Token{Subject: "S"})
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if tok == nil {
		t.Fatalf("Refresh() = nil, want populated token")
	}
	if tok.ItemID != "42" {
		t.Errorf("ItemID = %q, want 42", tok.ItemID)
	}
	if tok.Subject != "S" {
		t.Errorf("Subject = %q, want S", tok.Subject)
	}
	if tok.ListKey != "User" {
		t.Errorf("ListKey = %q, want User", tok.ListKey)
	}
	if tok.Data["id"] != "42" {
		t.Errorf("Data = %v, want default id selection", tok.Data)
	}
}

func TestRefresh_StringifiesNumericID(t *testing.T) {
	m, _ := newFixture(t, "", map[string]any{"id": float64(42), "subjectId": "S"})

	tok, err := m.Refresh(context.Background(), &session.Token{Subject: "S"})
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if tok.ItemID != "42" {
		t.Errorf("ItemID = %q, want stringified 42", tok.ItemID)
	}
}

func TestRefresh_SessionDataSelection(t *testing.T) {
	m, _ := newFixture(t, "id name email", map[string]any{
		"id":        "42",
		"subjectId": "S",
		"name":      "Ada",
		"email":     "ada@example.com",
		"password":  "must-not-leak",
	})

	tok, err := m.Refresh(context.Background(), &session.Token{Subject: "S"})
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if tok.Data["name"] != "Ada" || tok.Data["email"] != "ada@example.com" {
		t.Errorf("Data = %v, want selected fields", tok.Data)
	}
	if _, ok := tok.Data["password"]; ok {
		t.Errorf("Data leaked unselected field: %v", tok.Data)
	}
}

func TestRefresh_PopulatedTokenPassesThrough(t *testing.T) {
	m, res := newFixture(t, "", map[string]any{"id": "42", "subjectId": "S"})

	in := &session.Token{Subject: "S", ItemID: "42", ListKey: "User"}
	out, err := m.Refresh(context.Background(), in)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if out != in {
		t.Errorf("Refresh() rebuilt an already-populated token")
	}
	if res.calls != 0 {
		t.Errorf("resolver called %d times, want 0 (cached resolution)", res.calls)
	}
}

func TestRefresh_UnresolvableYieldsNoToken(t *testing.T) {
	m, _ := newFixture(t, "")

	tok, err := m.Refresh(context.Background(), &session.Token{Subject: "ghost"})
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if tok != nil {
		t.Errorf("Refresh() = %v, want nil for unlinkable subject", tok)
	}
}

func TestRefresh_AmbiguousYieldsNoToken(t *testing.T) {
	list := keystone.NewMemoryList("")
	for i := 0; i < 2; i++ {
		if _, err := list.CreateOne(context.Background(), map[string]any{"subjectId": "S"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	res := resolver.NewListResolver(list, "subjectId", true)
	m := session.NewMaterializer(res, list, "User", "")

	tok, err := m.Refresh(context.Background(), &session.Token{Subject: "S"})
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if tok != nil {
		t.Errorf("Refresh() = %v, want nil on ambiguous identity", tok)
	}
}

func TestForItem_MintsPopulatedToken(t *testing.T) {
	m, res := newFixture(t, "", map[string]any{"id": "7", "subjectId": "S"})

	tok, err := m.ForItem(context.Background(), "S", 7)
	if err != nil {
		t.Fatalf("ForItem() error = %v", err)
	}
	if tok.ItemID != "7" || tok.ListKey != "User" {
		t.Errorf("ForItem() = %+v", tok)
	}
	if res.calls != 0 {
		t.Errorf("resolver called %d times, want 0", res.calls)
	}
}

func TestProject_MergesNonDestructively(t *testing.T) {
	tok := &session.Token{
		Subject: "abc",
		ItemID:  "42",
		ListKey: "User",
		Data:    map[string]any{"x": 1},
	}
	base := map[string]any{
		"expires": "2026-09-01T00:00:00.000Z",
		"user":    map[string]any{"name": "Ada"},
	}

	view := session.Project(base, tok)

	if view["expires"] != "2026-09-01T00:00:00.000Z" {
		t.Errorf("base expires clobbered: %v", view["expires"])
	}
	if view["user"] == nil {
		t.Errorf("base user clobbered")
	}
	if view["subject"] != "abc" || view["itemId"] != "42" || view["listKey"] != "User" {
		t.Errorf("view linkage = %v", view)
	}
	if d, ok := view["data"].(map[string]any); !ok || d["x"] != 1 {
		t.Errorf("view data = %v", view["data"])
	}
	if _, ok := base["subject"]; ok {
		t.Errorf("Project() mutated base session")
	}
}
