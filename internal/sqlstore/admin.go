package sqlstore

import (
	"context"
	"fmt"
)

// SenderRow is one row of the senders/senders_static tables, as surfaced to
// the operator CLI. Table names the table it came from ("senders" or
// "senders_static").
type SenderRow struct {
	Table  string
	Sender string
	Type   string
	Action string
	Ref    string
}

// ListSenders returns every exact-match and pattern row across both the
// dynamic and static tables, ordered by table then sender, for
// administrative listing.
func (b *Backend) ListSenders(ctx context.Context) ([]SenderRow, error) {
	var out []SenderRow
	for _, table := range []string{"senders", "senders_static"} {
		query := fmt.Sprintf(`SELECT sender, type, action, ref FROM %s ORDER BY sender ASC`, table)
		rows, err := b.db.QueryContext(ctx, query)
		if err != nil {
			return nil, wrapErr(err)
		}
		for rows.Next() {
			var r SenderRow
			var ref *string
			if err := rows.Scan(&r.Sender, &r.Type, &r.Action, &ref); err != nil {
				rows.Close()
				return nil, wrapErr(err)
			}
			if ref != nil {
				r.Ref = *ref
			}
			r.Table = table
			out = append(out, r)
		}
		rowsErr := rows.Err()
		rows.Close()
		if rowsErr != nil {
			return nil, wrapErr(rowsErr)
		}
	}
	return out, nil
}

// StashRow is one pending stash entry, as surfaced to the operator CLI.
type StashRow struct {
	Table      string
	ID         int64
	Sender     string
	Recipients string
	Size       int
}

// ListStash returns every pending entry for sender across both stash
// tables, without consuming them (unlike Drain).
func (b *Backend) ListStash(ctx context.Context, sender string) ([]StashRow, error) {
	var out []StashRow
	for _, table := range []string{"stash", "stash_static"} {
		query := fmt.Sprintf(`SELECT id, recipients, message FROM %s WHERE sender = %s ORDER BY id ASC`,
			table, b.dialect.placeholder(1))
		rows, err := b.db.QueryContext(ctx, query, sender)
		if err != nil {
			return nil, wrapErr(err)
		}
		for rows.Next() {
			var id int64
			var recipients, message string
			if err := rows.Scan(&id, &recipients, &message); err != nil {
				rows.Close()
				return nil, wrapErr(err)
			}
			out = append(out, StashRow{Table: table, ID: id, Sender: sender, Recipients: recipients, Size: len(message)})
		}
		rowsErr := rows.Err()
		rows.Close()
		if rowsErr != nil {
			return nil, wrapErr(rowsErr)
		}
	}
	return out, nil
}
