package postconfirm

import "context"

// Stash is the persistent per-sender message queue: a dynamic (runtime-fed)
// table and a static (operator-seeded) table, both FIFO by creation order.
type Stash interface {
	// Append adds a new entry to the dynamic stash for sender.
	Append(ctx context.Context, sender string, recipients []string, message []byte) error

	// Drain yields every stashed entry for sender, dynamic entries first,
	// then static, each table in FIFO order. fn is called once per entry;
	// an entry is deleted only after fn returns nil for it, so a consumer
	// that returns an error (the decider's release loop does so when a
	// relay fails) leaves that entry and everything after it in the same
	// table untouched, safe to drain again later.
	Drain(ctx context.Context, sender string, fn func(recipients []string, message []byte) error) error
}
