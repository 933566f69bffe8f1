package link_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/link"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/mapper"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/resolver"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/keystone"
)

// countingList counts create calls and can be made to fail them.
type countingList struct {
	*keystone.MemoryList
	creates    int
	failCreate bool
}

func (c *countingList) CreateOne(ctx context.Context, data map[string]any) (keystone.Record, error) {
	c.creates++
	if c.failCreate {
		return nil, errors.New("insert failed")
	}
	return c.MemoryList.CreateOne(ctx, data)
}

func testCallback() *auth.Callback {
	return &auth.Callback{
		Identity: auth.ExternalIdentity{Provider: "auth0", SubjectID: "subj-1"},
		User:     auth.ClaimSet{"id": "subj-1", "name": "Ada"},
		Account:  auth.ClaimSet{"provider": "auth0"},
		Profile:  auth.ClaimSet{"name": "Ada Lovelace", "email": "ada@example.com"},
	}
}

func testMaps() mapper.Config {
	return mapper.Config{
		User:    mapper.Mapping{"subjectId": "id"},
		Account: mapper.Mapping{"authProvider": "provider"},
		Profile: mapper.Mapping{"name": "name", "email": "email"},
	}
}

func newOrchestrator(list keystone.ListAPI, autoCreate bool) *link.Orchestrator {
	res := resolver.NewListResolver(list, "subjectId", true)
	return link.NewOrchestrator(res, list, testMaps(), autoCreate, nil)
}

func TestSignIn_UnknownIdentityNoAutoCreate(t *testing.T) {
	list := &countingList{MemoryList: keystone.NewMemoryList("subjectId")}
	o := newOrchestrator(list, false)

	outcome, err := o.SignIn(context.Background(), testCallback())
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if outcome.Allowed() {
		t.Errorf("SignIn() allowed, want rejected")
	}
	if list.creates != 0 {
		t.Errorf("creates = %d, want 0", list.creates)
	}
}

func TestSignIn_UnknownIdentityAutoCreate(t *testing.T) {
	list := &countingList{MemoryList: keystone.NewMemoryList("subjectId")}
	o := newOrchestrator(list, true)

	outcome, err := o.SignIn(context.Background(), testCallback())
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if outcome.State != link.Created {
		t.Fatalf("SignIn().State = %v, want Created", outcome.State)
	}
	if list.creates != 1 {
		t.Errorf("creates = %d, want exactly 1", list.creates)
	}

	// The created record carries the deterministic claim merge.
	if outcome.Item["subjectId"] != "subj-1" {
		t.Errorf("created subjectId = %v", outcome.Item["subjectId"])
	}
	if outcome.Item["authProvider"] != "auth0" {
		t.Errorf("created authProvider = %v", outcome.Item["authProvider"])
	}
	if outcome.Item["name"] != "Ada Lovelace" {
		t.Errorf("created name = %v, want profile value", outcome.Item["name"])
	}
	if outcome.Item["email"] != "ada@example.com" {
		t.Errorf("created email = %v", outcome.Item["email"])
	}
}

func TestSignIn_ExistingIdentityAccepted(t *testing.T) {
	mem := keystone.NewMemoryList("subjectId")
	if _, err := mem.CreateOne(context.Background(), map[string]any{
		"subjectId": "subj-1",
		"name":      "Original Name",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	list := &countingList{MemoryList: mem}
	o := newOrchestrator(list, true)

	outcome, err := o.SignIn(context.Background(), testCallback())
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if outcome.State != link.Accepted {
		t.Fatalf("SignIn().State = %v, want Accepted", outcome.State)
	}
	if list.creates != 0 {
		t.Errorf("creates = %d, want 0", list.creates)
	}

	// Claims from this sign-in must not have touched the linked record.
	rec, err := mem.FindOne(context.Background(), map[string]any{"subjectId": "subj-1"}, "id name")
	if err != nil {
		t.Fatalf("FindOne() error = %v", err)
	}
	if rec["name"] != "Original Name" {
		t.Errorf("record name = %v, want unchanged", rec["name"])
	}
}

func TestSignIn_AmbiguousIdentityRejectsWithoutCreate(t *testing.T) {
	mem := keystone.NewMemoryList("") // no unique index, duplicates possible
	for i := 0; i < 2; i++ {
		if _, err := mem.CreateOne(context.Background(), map[string]any{"subjectId": "subj-1"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	list := &countingList{MemoryList: mem}
	o := newOrchestrator(list, true) // autoCreate on must make no difference

	outcome, err := o.SignIn(context.Background(), testCallback())
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if outcome.Allowed() {
		t.Errorf("SignIn() allowed on ambiguous identity, want fail closed")
	}
	if list.creates != 0 {
		t.Errorf("creates = %d, want 0", list.creates)
	}
}

func TestSignIn_CreateFailurePropagates(t *testing.T) {
	list := &countingList{
		MemoryList: keystone.NewMemoryList("subjectId"),
		failCreate: true,
	}
	o := newOrchestrator(list, true)

	_, err := o.SignIn(context.Background(), testCallback())
	if err == nil {
		t.Fatalf("SignIn() error = nil, want create failure to propagate")
	}
}

func TestSignIn_DuplicateCreateBlockedByUniqueField(t *testing.T) {
	mem := keystone.NewMemoryList("subjectId")
	list := &countingList{MemoryList: mem}
	o := newOrchestrator(list, true)

	if _, err := o.SignIn(context.Background(), testCallback()); err != nil {
		t.Fatalf("first SignIn() error = %v", err)
	}

	// Simulate the race: a second create for the same subject issued
	// directly against storage must hit the uniqueness guarantee.
	_, err := mem.CreateOne(context.Background(), map[string]any{"subjectId": "subj-1"})
	if !errors.Is(err, keystone.ErrDuplicate) {
		t.Errorf("CreateOne() error = %v, want ErrDuplicate", err)
	}
}
