package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// RunListMigration creates the backing table for a CMS list and a partial
// unique index per unique field (the identity field, plus any extras such
// as the password email field). The indexes are what make concurrent
// creates safe: check-then-create in the orchestrator and the credentials
// service is not transactional, so the second create must fail at the
// storage layer.
func RunListMigration(ctx context.Context, db *sql.DB, table, identityField string, extraUniqueFields ...string) error {
	stmt := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS %s (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    data jsonb NOT NULL DEFAULT '{}'::jsonb,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);
`, pq.QuoteIdentifier(table))

	stmt += uniqueIndex(table, identityField, table+"_identity_unique")
	for _, field := range extraUniqueFields {
		if field == "" || field == identityField {
			continue
		}
		stmt += uniqueIndex(table, field, fmt.Sprintf("%s_%s_unique", table, field))
	}

	_, err := db.ExecContext(ctx, stmt)
	return err
}

func uniqueIndex(table, field, name string) string {
	return fmt.Sprintf(`
CREATE UNIQUE INDEX IF NOT EXISTS %[1]s
ON %[2]s ((data->>%[3]s))
WHERE data->>%[3]s IS NOT NULL;
`,
		pq.QuoteIdentifier(name),
		pq.QuoteIdentifier(table),
		pq.QuoteLiteral(field),
	)
}
