package postconfirm

import (
	"context"

	"github.com/ietf-svn-conversion/postconfirm/framework/log"
)

// Sender is a value-object binding an address to the store and stash. It
// carries no mutable state of its own -- every transition is a store write,
// so it is safe to construct fresh at every suspension point and never
// needs to be held across one.
type Sender struct {
	address string
	store   Store
	stash   Stash
	log     log.Logger
}

// NewSender constructs a Sender bound to address (expected already
// normalized for lookup).
func NewSender(store Store, stash Stash, logger log.Logger, address string) *Sender {
	return &Sender{address: address, store: store, stash: stash, log: logger}
}

// Email returns the address this Sender is bound to.
func (s *Sender) Email() string {
	return s.address
}

// resolve reads the current action and ref set, treating a transient store
// failure as unknown so the decider can proceed cautiously rather than
// abort the session.
func (s *Sender) resolve(ctx context.Context) (Action, RefSet) {
	action, refs, err := GetAction(ctx, s.store, s.address)
	if err != nil {
		s.log.Error("sender store lookup failed, treating as unknown", err, "sender", s.address)
		return ActionUnknown, nil
	}
	return action, refs
}

// GetAction returns the sender's current action.
func (s *Sender) GetAction(ctx context.Context) Action {
	action, _ := s.resolve(ctx)
	return action
}

// ValidateRef reports whether candidate is a member of the sender's current
// ref set.
func (s *Sender) ValidateRef(ctx context.Context, candidate string) bool {
	_, refs := s.resolve(ctx)
	return refs.Contains(candidate)
}

// StashMessage appends message to the stash and attaches a fresh reference
// to the sender's record: an unknown or expired sender starts a new ref set
// of just this reference; a confirm sender gets it appended to the existing
// set.
func (s *Sender) StashMessage(ctx context.Context, message []byte, recipients []string) (string, error) {
	action, refs := s.resolve(ctx)

	if err := s.stash.Append(ctx, s.address, recipients, message); err != nil {
		return "", err
	}

	ref := NewReference()
	var newRefs RefSet
	if action == ActionConfirm {
		newRefs = refs.Add(ref)
	} else {
		newRefs = RefSet{ref}
	}

	if err := s.store.SetAction(ctx, s.address, ActionConfirm, newRefs); err != nil {
		s.log.Error("failed to record challenge reference", err, "sender", s.address)
	}

	return ref, nil
}

// UnstashMessages drains the stash, invoking fn for each entry, then
// promotes the sender to accept with an empty ref set.
func (s *Sender) UnstashMessages(ctx context.Context, fn func(recipients []string, message []byte) error) error {
	if err := s.stash.Drain(ctx, s.address, fn); err != nil {
		return err
	}
	if err := s.store.SetAction(ctx, s.address, ActionAccept, nil); err != nil {
		s.log.Error("failed to promote sender to accepted state", err, "sender", s.address)
	}
	return nil
}
