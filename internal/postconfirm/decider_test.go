package postconfirm

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ietf-svn-conversion/postconfirm/framework/log"
)

type relayCall struct {
	from       string
	recipients []string
	message    []byte
}

type fakeRelayer struct {
	calls []relayCall
	err   error
}

func (f *fakeRelayer) Sendmail(_ context.Context, from string, recipients []string, rawMessage []byte) error {
	f.calls = append(f.calls, relayCall{from: from, recipients: recipients, message: append([]byte(nil), rawMessage...)})
	return f.err
}

func newTestDecider(t *testing.T, store Store, stash Stash, relayer Relayer) *Decider {
	t.Helper()

	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "challenge.tmpl")
	if err := os.WriteFile(tmplPath, []byte("Please reply to confirm {{subject}} for {{sender_address}} ({{id}})"), 0o644); err != nil {
		t.Fatal(err)
	}

	dropFilter, err := NewDropFilter("", "")
	if err != nil {
		t.Fatal(err)
	}

	return &Decider{
		Store:      store,
		Stash:      stash,
		DropFilter: dropFilter,
		Emitter:    NewEmitter(tmplPath, "admin@ex.org", relayer, log.Logger{}),
		Relayer:    relayer,
		Policy:     NewExemptRecipientPolicy(nil),
		Log:        log.Logger{},
	}
}

func noBody(_ context.Context) ([]byte, error) { return []byte("body"), nil }

// Scenario 1: accepted sender sails through untouched.
func TestScenarioAcceptedSenderAccepts(t *testing.T) {
	store := newMemStore()
	stash := newMemStash()
	store.dynamic["alice@ex.org"] = Record{Action: ActionAccept}
	relayer := &fakeRelayer{}

	d := newTestDecider(t, store, stash, relayer)
	v := d.Decide(context.Background(), "alice@ex.org", []string{"list@ex.org"}, nil, "Hello", noBody)

	if v != Accept {
		t.Fatalf("got %v, want Accept", v)
	}
	if stash.count("alice@ex.org") != 0 {
		t.Fatal("expected no stash write for accepted sender")
	}
}

// Scenario 2: unknown sender gets discarded, stashed, and challenged.
func TestScenarioUnknownSenderIsChallenged(t *testing.T) {
	store := newMemStore()
	stash := newMemStash()
	relayer := &fakeRelayer{}

	d := newTestDecider(t, store, stash, relayer)
	v := d.Decide(context.Background(), "bob@ex.org", []string{"list@ex.org"}, nil, "Hello", noBody)

	if v != Discard {
		t.Fatalf("got %v, want Discard", v)
	}
	if stash.count("bob@ex.org") != 1 {
		t.Fatalf("expected one stashed entry, got %d", stash.count("bob@ex.org"))
	}
	if len(relayer.calls) != 1 {
		t.Fatalf("expected one challenge email, got %d", len(relayer.calls))
	}
	if !strings.HasPrefix(extractSubject(t, relayer.calls[0].message), " Confirm: ::") {
		t.Fatalf("unexpected challenge subject: %q", extractSubject(t, relayer.calls[0].message))
	}

	action, refs, err := GetAction(context.Background(), store, "bob@ex.org")
	if err != nil {
		t.Fatal(err)
	}
	if action != ActionConfirm || len(refs) != 1 {
		t.Fatalf("got (%v, %v)", action, refs)
	}
}

// Scenario 3: a second message from a confirm sender stashes again without
// resending the challenge.
func TestScenarioSecondMessageFromConfirmSenderNoResend(t *testing.T) {
	store := newMemStore()
	stash := newMemStash()
	store.dynamic["bob@ex.org"] = Record{Action: ActionConfirm, Refs: RefSet{"ab12cd34"}}
	relayer := &fakeRelayer{}

	d := newTestDecider(t, store, stash, relayer)
	v := d.Decide(context.Background(), "bob@ex.org", []string{"list@ex.org"}, nil, "Hello", noBody)

	if v != Discard {
		t.Fatalf("got %v, want Discard", v)
	}
	if stash.count("bob@ex.org") != 1 {
		t.Fatalf("expected one stashed entry, got %d", stash.count("bob@ex.org"))
	}
	if len(relayer.calls) != 0 {
		t.Fatalf("expected no challenge email, got %d", len(relayer.calls))
	}

	_, refs, err := GetAction(context.Background(), store, "bob@ex.org")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 || !refs.Contains("ab12cd34") {
		t.Fatalf("expected ref set to grow by one, got %v", refs)
	}
}

// Scenario 4: a valid confirmation releases stashed mail and accepts.
func TestScenarioValidConfirmationReleasesAndAccepts(t *testing.T) {
	store := newMemStore()
	stash := newMemStash()
	store.dynamic["bob@ex.org"] = Record{Action: ActionConfirm, Refs: RefSet{"ab12cd34", "ef56ab78"}}
	stash.dynamic["bob@ex.org"] = []stashEntry{
		{recipients: []string{"list@ex.org"}, message: []byte("first")},
		{recipients: []string{"list@ex.org"}, message: []byte("second")},
	}
	relayer := &fakeRelayer{}

	d := newTestDecider(t, store, stash, relayer)
	v := d.Decide(context.Background(), "bob@ex.org", []string{"list@ex.org"}, nil, "Confirm: ::ab12cd34", noBody)

	if v != Accept {
		t.Fatalf("got %v, want Accept", v)
	}
	if len(relayer.calls) != 2 {
		t.Fatalf("expected both stashed messages released, got %d", len(relayer.calls))
	}
	if string(relayer.calls[0].message) != "first" || string(relayer.calls[1].message) != "second" {
		t.Fatalf("expected FIFO release order, got %v", relayer.calls)
	}

	action, refs, err := GetAction(context.Background(), store, "bob@ex.org")
	if err != nil {
		t.Fatal(err)
	}
	if action != ActionAccept || len(refs) != 0 {
		t.Fatalf("got (%v, %v), want (accept, {})", action, refs)
	}
}

// Scenario 5: an unrecognized reference is rejected.
func TestScenarioUnknownReferenceIsRejected(t *testing.T) {
	store := newMemStore()
	stash := newMemStash()
	store.dynamic["bob@ex.org"] = Record{Action: ActionConfirm, Refs: RefSet{"ab12cd34"}}
	relayer := &fakeRelayer{}

	d := newTestDecider(t, store, stash, relayer)
	v := d.Decide(context.Background(), "bob@ex.org", []string{"list@ex.org"}, nil, "Confirm: ::deadbeef", noBody)

	if v != Reject {
		t.Fatalf("got %v, want Reject", v)
	}
	if len(relayer.calls) != 0 {
		t.Fatalf("expected no release on rejected confirmation, got %d calls", len(relayer.calls))
	}
}

// Scenario 6: bulk mail from an unknown sender is silently discarded, no
// stash write, no challenge.
func TestScenarioBulkMailFromUnknownSenderIsSilentlyDropped(t *testing.T) {
	store := newMemStore()
	stash := newMemStash()
	relayer := &fakeRelayer{}

	d := newTestDecider(t, store, stash, relayer)
	headers := []Header{{Name: "Precedence", Value: "bulk"}}
	v := d.Decide(context.Background(), "spammer@ex.org", []string{"list@ex.org"}, headers, "Hello", noBody)

	if v != Discard {
		t.Fatalf("got %v, want Discard", v)
	}
	if stash.count("spammer@ex.org") != 0 {
		t.Fatal("expected no stash write")
	}
	if len(relayer.calls) != 0 {
		t.Fatal("expected no challenge email")
	}
}

func TestDecideAcceptsWhenNoRecipientRequiresChallenge(t *testing.T) {
	store := newMemStore()
	stash := newMemStash()
	relayer := &fakeRelayer{}

	d := newTestDecider(t, store, stash, relayer)
	d.Policy = NewExemptRecipientPolicy([]string{"@ex.org"})

	v := d.Decide(context.Background(), "bob@ex.org", []string{"list@ex.org"}, nil, "Hello", noBody)
	if v != Accept {
		t.Fatalf("got %v, want Accept", v)
	}
	if stash.count("bob@ex.org") != 0 {
		t.Fatal("exempt recipients must never trigger a stash write")
	}
}

func extractSubject(t *testing.T, raw []byte) string {
	t.Helper()
	for _, line := range strings.Split(string(raw), "\r\n") {
		if strings.HasPrefix(line, "Subject:") {
			return strings.TrimPrefix(line, "Subject:")
		}
	}
	t.Fatalf("no Subject header found in %q", raw)
	return ""
}
