package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/resolver"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/keystone"
)

// Materializer turns an authenticated identity into a populated session
// token and derives the per-request session view from it.
type Materializer struct {
	resolver    resolver.Resolver
	list        keystone.ListAPI
	listKey     string
	sessionData string
}

// NewMaterializer binds the token lifecycle to a list. sessionData is the
// field selection copied into the token on refresh; empty means the
// identifier alone.
func NewMaterializer(res resolver.Resolver, list keystone.ListAPI, listKey, sessionData string) *Materializer {
	if sessionData == "" {
		sessionData = "id"
	}
	return &Materializer{
		resolver:    res,
		list:        list,
		listKey:     listKey,
		sessionData: sessionData,
	}
}

// Refresh populates a token that has not been resolved yet. A token that
// already carries an ItemID passes through untouched; resolution is
// cached in the token, not repeated per request. A nil, nil return means
// the subject is unlinkable (or ambiguous) and no usable token exists —
// the caller must treat the session as logged out.
func (m *Materializer) Refresh(ctx context.Context, tok *Token) (*Token, error) {
	if tok.ItemID != "" {
		return tok, nil
	}

	res, err := m.resolver.Resolve(ctx, tok.Subject)
	if errors.Is(err, resolver.ErrAmbiguousIdentity) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: resolve subject: %w", err)
	}
	if !res.Success {
		return nil, nil
	}

	return m.mint(ctx, tok, keystone.StringID(res.Item["id"]))
}

// ForItem mints a fully populated token for an already-known record. Used
// by sign-in paths where the record id is in hand, skipping re-resolution.
func (m *Materializer) ForItem(ctx context.Context, subject string, itemID any) (*Token, error) {
	return m.mint(ctx, &Token{Subject: subject}, keystone.StringID(itemID))
}

func (m *Materializer) mint(ctx context.Context, tok *Token, itemID string) (*Token, error) {
	data, err := m.list.FindOne(ctx, map[string]any{"id": itemID}, m.sessionData)
	if err != nil {
		return nil, fmt.Errorf("session: load session data: %w", err)
	}

	out := *tok
	out.ItemID = itemID
	out.ListKey = m.listKey
	out.Data = data
	return &out, nil
}

// Project derives the externally visible session view: the token's
// linkage merged into the base session object. Base fields the identity
// layer supplies (e.g. expires) stay untouched; the view is recomputed on
// every read and never persisted.
func Project(base map[string]any, tok *Token) map[string]any {
	out := make(map[string]any, len(base)+4)
	for k, v := range base {
		out[k] = v
	}
	out["data"] = tok.Data
	out["subject"] = tok.Subject
	out["listKey"] = tok.ListKey
	out["itemId"] = tok.ItemID
	return out
}
