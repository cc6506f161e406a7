package storecache

import (
	"context"
	"sync"
	"testing"

	"github.com/ietf-svn-conversion/postconfirm/framework/hooks"
	"github.com/ietf-svn-conversion/postconfirm/framework/log"
	"github.com/ietf-svn-conversion/postconfirm/internal/postconfirm"
)

type countingStore struct {
	mu    sync.Mutex
	loads int
	rules []postconfirm.PatternRule
}

func (c *countingStore) ExactLookup(context.Context, string) (*postconfirm.Record, *postconfirm.Record, error) {
	return nil, nil, nil
}

func (c *countingStore) SetAction(context.Context, string, postconfirm.Action, postconfirm.RefSet) error {
	return nil
}

func (c *countingStore) Patterns(context.Context) ([]postconfirm.PatternRule, error) {
	c.mu.Lock()
	c.loads++
	c.mu.Unlock()
	return c.rules, nil
}

func TestPatternsLoadedOnce(t *testing.T) {
	backend := &countingStore{rules: []postconfirm.PatternRule{{Pattern: ".*@ex\\.org", Action: postconfirm.ActionAccept}}}
	p := Wrap(backend, log.Logger{})

	for i := 0; i < 3; i++ {
		rules, err := p.Patterns(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(rules) != 1 {
			t.Fatalf("got %d rules, want 1", len(rules))
		}
	}

	if backend.loads != 1 {
		t.Fatalf("backend queried %d times, want 1", backend.loads)
	}
}

func TestPatternsReloadAfterEventReload(t *testing.T) {
	backend := &countingStore{}
	p := Wrap(backend, log.Logger{})

	if _, err := p.Patterns(context.Background()); err != nil {
		t.Fatal(err)
	}
	hooks.RunHooks(hooks.EventReload)
	if _, err := p.Patterns(context.Background()); err != nil {
		t.Fatal(err)
	}

	if backend.loads != 2 {
		t.Fatalf("backend queried %d times, want 2 (one per load epoch)", backend.loads)
	}
}
