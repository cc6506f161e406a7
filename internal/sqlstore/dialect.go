package sqlstore

import (
	"fmt"
	"strings"
)

// dialect captures the handful of places Postgres, MySQL and SQLite differ
// for this schema: placeholder syntax, upsert syntax, and autoincrement
// column declaration.
type dialect struct {
	name string

	// placeholder returns the positional placeholder for the n-th
	// (1-indexed) bound argument.
	placeholder func(n int) string

	autoIncrementPK string // the full column definition for the id column
	timestampType   string
	nowDefault      string

	// upsertSender renders an INSERT ... ON CONFLICT/DUPLICATE KEY
	// statement for the senders table upserting (sender, type, action,
	// ref, source, updated_at) at positions 1..6.
	upsertSender func() string
}

func (d dialect) placeholders(n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = d.placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}

var postgresDialect = dialect{
	name:            "postgres",
	placeholder:     func(n int) string { return fmt.Sprintf("$%d", n) },
	autoIncrementPK: "SERIAL PRIMARY KEY",
	timestampType:   "TIMESTAMP",
	nowDefault:      "DEFAULT now()",
	upsertSender: func() string {
		return `INSERT INTO senders (sender, type, action, ref, source, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (sender, type) DO UPDATE SET
				action = EXCLUDED.action,
				ref = EXCLUDED.ref,
				source = EXCLUDED.source,
				updated_at = EXCLUDED.updated_at`
	},
}

var mysqlDialect = dialect{
	name:            "mysql",
	placeholder:     func(int) string { return "?" },
	autoIncrementPK: "INT AUTO_INCREMENT PRIMARY KEY",
	timestampType:   "DATETIME",
	nowDefault:      "DEFAULT CURRENT_TIMESTAMP",
	upsertSender: func() string {
		return `INSERT INTO senders (sender, type, action, ref, source, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				action = VALUES(action),
				ref = VALUES(ref),
				source = VALUES(source),
				updated_at = VALUES(updated_at)`
	},
}

var sqliteDialect = dialect{
	name:            "sqlite",
	placeholder:     func(int) string { return "?" },
	autoIncrementPK: "INTEGER PRIMARY KEY AUTOINCREMENT",
	timestampType:   "TIMESTAMP",
	nowDefault:      "DEFAULT CURRENT_TIMESTAMP",
	upsertSender: func() string {
		return `INSERT INTO senders (sender, type, action, ref, source, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(sender, type) DO UPDATE SET
				action = excluded.action,
				ref = excluded.ref,
				source = excluded.source,
				updated_at = excluded.updated_at`
	},
}
