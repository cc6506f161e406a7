package postconfirm

import "context"

type stashEntry struct {
	recipients []string
	message    []byte
}

// memStash is a minimal in-memory Stash used across this package's tests.
// It buffers rows (mirroring internal/sqlstore's portable drain strategy)
// and only removes an entry once fn returns nil for it.
type memStash struct {
	dynamic map[string][]stashEntry
	static  map[string][]stashEntry
}

func newMemStash() *memStash {
	return &memStash{dynamic: map[string][]stashEntry{}, static: map[string][]stashEntry{}}
}

func (m *memStash) Append(_ context.Context, sender string, recipients []string, message []byte) error {
	m.dynamic[sender] = append(m.dynamic[sender], stashEntry{recipients: recipients, message: message})
	return nil
}

func (m *memStash) Drain(_ context.Context, sender string, fn func([]string, []byte) error) error {
	for _, table := range []map[string][]stashEntry{m.dynamic, m.static} {
		remaining := table[sender]
		for len(remaining) > 0 {
			entry := remaining[0]
			if err := fn(entry.recipients, entry.message); err != nil {
				table[sender] = remaining
				return err
			}
			remaining = remaining[1:]
			table[sender] = remaining
		}
	}
	return nil
}

func (m *memStash) count(sender string) int {
	return len(m.dynamic[sender]) + len(m.static[sender])
}
