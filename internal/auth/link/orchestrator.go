package link

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/mapper"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/resolver"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/keystone"
)

// State is the terminal outcome of one sign-in attempt.
type State int

const (
	Rejected State = iota
	Accepted
	Created
)

func (s State) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Created:
		return "created"
	default:
		return "rejected"
	}
}

// Outcome reports the decision and, when sign-in proceeds, the record the
// identity now links to.
type Outcome struct {
	State State
	Item  keystone.Record
}

// Allowed reports whether the sign-in may proceed.
func (o Outcome) Allowed() bool {
	return o.State != Rejected
}

// Orchestrator is the sign-in decision state machine. It consumes the
// resolver result, the mapped claims and the auto-create policy, and
// performs at most one create per attempt.
type Orchestrator struct {
	resolver   resolver.Resolver
	list       keystone.ListAPI
	fields     mapper.Config
	autoCreate bool
	locks      Locker
}

// NewOrchestrator wires the sign-in decision. locks may be nil; when set,
// same-subject sign-ins are serialized so the resolve-then-create window
// cannot produce duplicate records (the unique identity index remains the
// authoritative guard either way).
func NewOrchestrator(
	res resolver.Resolver,
	list keystone.ListAPI,
	fields mapper.Config,
	autoCreate bool,
	locks Locker,
) *Orchestrator {
	return &Orchestrator{
		resolver:   res,
		list:       list,
		fields:     fields,
		autoCreate: autoCreate,
		locks:      locks,
	}
}

// SignIn runs once per provider callback. Rejections come back as an
// Outcome with a nil error; only storage failures (including a failed
// auto-create) surface as errors and abort the attempt.
func (o *Orchestrator) SignIn(ctx context.Context, cb *auth.Callback) (Outcome, error) {
	if cb == nil {
		return Outcome{}, errors.New("link: nil callback")
	}

	if o.locks != nil {
		unlock, err := o.locks.Lock(ctx, cb.Identity.SubjectID)
		if err != nil {
			return Outcome{}, fmt.Errorf("link: acquire subject lock: %w", err)
		}
		defer unlock()
	}

	res, err := o.resolver.Resolve(ctx, cb.Identity.SubjectID)
	if errors.Is(err, resolver.ErrAmbiguousIdentity) {
		// Fail closed. An ambiguous read must not fall through to the
		// create arm either, or it would mint a third duplicate.
		log.Warn().
			Str("provider", cb.Identity.Provider).
			Msg("ambiguous identity, sign-in blocked")
		return Outcome{State: Rejected}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("link: resolve identity: %w", err)
	}

	if res.Success {
		// Claims received on this sign-in are not persisted to an
		// already linked record. See DESIGN.md on update-on-relink.
		return Outcome{State: Accepted, Item: res.Item}, nil
	}

	if !o.autoCreate {
		log.Info().
			Str("provider", cb.Identity.Provider).
			Msg("unknown identity and auto-create disabled, sign-in rejected")
		return Outcome{State: Rejected}, nil
	}

	data := mapper.Map(cb, o.fields)
	item, err := o.list.CreateOne(ctx, data)
	if err != nil {
		return Outcome{}, fmt.Errorf("link: create record during sign-in: %w", err)
	}

	log.Info().
		Str("provider", cb.Identity.Provider).
		Str("item_id", keystone.StringID(item["id"])).
		Msg("record auto-created for first-seen identity")
	return Outcome{State: Created, Item: item}, nil
}
