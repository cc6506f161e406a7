package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ietf-svn-conversion/postconfirm/framework/exterrors"
	"github.com/ietf-svn-conversion/postconfirm/framework/log"
	"github.com/ietf-svn-conversion/postconfirm/internal/postconfirm"
)

// Backend implements postconfirm.Store and postconfirm.Stash over a single
// *sql.DB, shared by the dynamic and (by convention only) static tables.
type Backend struct {
	db         *sql.DB
	dialect    dialect
	log        log.Logger
	confirmTTL time.Duration // 0 disables expired materialization
}

// SetConfirmTTL configures the age above which a confirm record is read
// back as expired. Zero (the default) disables the behavior entirely --
// confirm rows never age out on their own.
func (b *Backend) SetConfirmTTL(ttl time.Duration) {
	b.confirmTTL = ttl
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	return exterrors.WithFields(err, map[string]interface{}{"component": "sqlstore"})
}

func (b *Backend) lookupOne(ctx context.Context, table, sender string) (*postconfirm.Record, error) {
	query := fmt.Sprintf(`SELECT action, ref, updated_at FROM %s WHERE sender = %s AND type = 'E'`,
		table, b.dialect.placeholder(1))

	row := b.db.QueryRowContext(ctx, query, sender)

	var action string
	var ref sql.NullString
	var updatedAt sql.NullTime
	if err := row.Scan(&action, &ref, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if !exterrors.IsTemporaryOrUnspec(err) {
			return nil, err
		}
		return nil, wrapErr(err)
	}

	resolvedAction := postconfirm.Action(action)
	if resolvedAction == postconfirm.ActionConfirm && b.confirmTTL > 0 && updatedAt.Valid {
		if time.Since(updatedAt.Time) > b.confirmTTL {
			resolvedAction = postconfirm.ActionExpired
		}
	}

	return &postconfirm.Record{Action: resolvedAction, Refs: postconfirm.DecodeRefs(ref.String)}, nil
}

// ExactLookup implements postconfirm.Store.
func (b *Backend) ExactLookup(ctx context.Context, sender string) (*postconfirm.Record, *postconfirm.Record, error) {
	dynamic, err := b.lookupOne(ctx, "senders", sender)
	if err != nil {
		return nil, nil, err
	}
	static, err := b.lookupOne(ctx, "senders_static", sender)
	if err != nil {
		return nil, nil, err
	}
	return dynamic, static, nil
}

// SetAction implements postconfirm.Store. It always replaces the dynamic
// row's refs with the value passed in -- any merging with the prior value
// is the caller's responsibility (internal/postconfirm.Sender does this for
// the challenge-emission path).
func (b *Backend) SetAction(ctx context.Context, sender string, action postconfirm.Action, refs postconfirm.RefSet) error {
	encoded := postconfirm.EncodeRefs(refs)
	var refVal interface{}
	if encoded == "" {
		refVal = nil
	} else {
		refVal = encoded
	}

	query := b.dialect.upsertSender()
	_, err := b.db.ExecContext(ctx, query, sender, "E", string(action), refVal, "postconfirm", time.Now().UTC())
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

// Patterns implements postconfirm.Store.
func (b *Backend) Patterns(ctx context.Context) ([]postconfirm.PatternRule, error) {
	query := `SELECT sender, action FROM senders WHERE type = 'P'
		UNION
		SELECT sender, action FROM senders_static WHERE type = 'P'`

	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var out []postconfirm.PatternRule
	for rows.Next() {
		var pattern, action string
		if err := rows.Scan(&pattern, &action); err != nil {
			return nil, wrapErr(err)
		}
		out = append(out, postconfirm.PatternRule{Pattern: pattern, Action: postconfirm.Action(action)})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return out, nil
}

// Append implements postconfirm.Stash.
func (b *Backend) Append(ctx context.Context, sender string, recipients []string, message []byte) error {
	encodedRecipients, err := json.Marshal(recipients)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO stash (sender, recipients, message) VALUES (%s)`, b.dialect.placeholders(3))
	_, err = b.db.ExecContext(ctx, query, sender, string(encodedRecipients), string(message))
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

type stashRow struct {
	id         int64
	recipients []string
	message    []byte
}

// Drain implements postconfirm.Stash. It buffers each table's rows into
// memory before replaying them through fn, deleting one row at a time right
// after fn accepts it -- a portable stand-in for a literal second live
// cursor (which SQLite's single-writer lock makes awkward to hold open
// across the same connection pool as the read cursor) that still preserves
// the contract: an entry is deleted only once the caller has consumed it.
func (b *Backend) Drain(ctx context.Context, sender string, fn func(recipients []string, message []byte) error) error {
	for _, table := range []string{"stash", "stash_static"} {
		if err := b.drainTable(ctx, table, sender, fn); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) drainTable(ctx context.Context, table, sender string, fn func([]string, []byte) error) error {
	query := fmt.Sprintf(`SELECT id, recipients, message FROM %s WHERE sender = %s ORDER BY id ASC`,
		table, b.dialect.placeholder(1))

	rows, err := b.db.QueryContext(ctx, query, sender)
	if err != nil {
		return wrapErr(err)
	}

	var pending []stashRow
	for rows.Next() {
		var row stashRow
		var recipientsJSON, message string
		if err := rows.Scan(&row.id, &recipientsJSON, &message); err != nil {
			rows.Close()
			return wrapErr(err)
		}
		if err := json.Unmarshal([]byte(recipientsJSON), &row.recipients); err != nil {
			rows.Close()
			return err
		}
		row.message = []byte(message)
		pending = append(pending, row)
	}
	rowsErr := rows.Err()
	rows.Close()
	if rowsErr != nil {
		return wrapErr(rowsErr)
	}

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE id = %s`, table, b.dialect.placeholder(1))
	for _, row := range pending {
		if err := fn(row.recipients, row.message); err != nil {
			return err
		}
		if _, err := b.db.ExecContext(ctx, deleteQuery, row.id); err != nil {
			return wrapErr(err)
		}
	}
	return nil
}
