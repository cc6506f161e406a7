package postconfirm

import (
	"context"
	"testing"

	"github.com/ietf-svn-conversion/postconfirm/framework/log"
)

func TestSenderStashMessageFirstTimeTransitionsToConfirm(t *testing.T) {
	store := newMemStore()
	stash := newMemStash()
	sender := NewSender(store, stash, log.Logger{}, "bob@ex.org")

	ref, err := sender.StashMessage(context.Background(), []byte("msg"), []string{"list@ex.org"})
	if err != nil {
		t.Fatal(err)
	}

	if stash.count("bob@ex.org") != 1 {
		t.Fatalf("expected one stashed entry, got %d", stash.count("bob@ex.org"))
	}

	action, refs, err := GetAction(context.Background(), store, "bob@ex.org")
	if err != nil {
		t.Fatal(err)
	}
	if action != ActionConfirm || !refs.Contains(ref) {
		t.Fatalf("got (%v, %v), want (confirm, {%s})", action, refs, ref)
	}
}

func TestSenderStashMessageAppendsRefWhenAlreadyConfirm(t *testing.T) {
	store := newMemStore()
	stash := newMemStash()
	sender := NewSender(store, stash, log.Logger{}, "bob@ex.org")

	ref1, _ := sender.StashMessage(context.Background(), []byte("msg1"), []string{"list@ex.org"})
	ref2, _ := sender.StashMessage(context.Background(), []byte("msg2"), []string{"list@ex.org"})

	if ref1 == ref2 {
		t.Fatal("expected distinct references across calls")
	}
	if stash.count("bob@ex.org") != 2 {
		t.Fatalf("expected two stashed entries, got %d", stash.count("bob@ex.org"))
	}

	action, refs, err := GetAction(context.Background(), store, "bob@ex.org")
	if err != nil {
		t.Fatal(err)
	}
	if action != ActionConfirm || !refs.Contains(ref1) || !refs.Contains(ref2) {
		t.Fatalf("got (%v, %v)", action, refs)
	}
}

func TestSenderUnstashMessagesPromotesToAcceptAfterFullRelease(t *testing.T) {
	store := newMemStore()
	stash := newMemStash()
	sender := NewSender(store, stash, log.Logger{}, "bob@ex.org")

	_, _ = sender.StashMessage(context.Background(), []byte("msg1"), []string{"list@ex.org"})
	_, _ = sender.StashMessage(context.Background(), []byte("msg2"), []string{"list@ex.org"})

	var released [][]byte
	err := sender.UnstashMessages(context.Background(), func(_ []string, message []byte) error {
		released = append(released, message)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(released) != 2 || string(released[0]) != "msg1" || string(released[1]) != "msg2" {
		t.Fatalf("expected FIFO release of both messages, got %v", released)
	}

	action, refs, err := GetAction(context.Background(), store, "bob@ex.org")
	if err != nil {
		t.Fatal(err)
	}
	if action != ActionAccept || len(refs) != 0 {
		t.Fatalf("got (%v, %v), want (accept, {})", action, refs)
	}
}
