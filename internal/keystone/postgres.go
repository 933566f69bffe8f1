package keystone

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// PostgresList backs one CMS list with an id + jsonb table. The identity
// field carries a unique expression index (see db.RunListMigration), so
// the at-most-one-record-per-identity guarantee holds even when two
// first-time sign-ins race past the resolver.
type PostgresList struct {
	db    *sql.DB
	table string
}

func NewPostgresList(db *sql.DB, table string) *PostgresList {
	return &PostgresList{db: db, table: table}
}

func (p *PostgresList) FindOne(ctx context.Context, where map[string]any, query string) (Record, error) {
	items, err := p.find(ctx, where, query, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func (p *PostgresList) FindMany(ctx context.Context, where map[string]any, query string) ([]Record, error) {
	return p.find(ctx, where, query, 0)
}

func (p *PostgresList) find(ctx context.Context, where map[string]any, query string, limit int) ([]Record, error) {
	clause, args := whereClause(where)

	stmt := fmt.Sprintf(
		`SELECT id, data FROM %s%s ORDER BY created_at`,
		pq.QuoteIdentifier(p.table),
		clause,
	)
	if limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := p.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("keystone: query %s: %w", p.table, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("keystone: scan %s: %w", p.table, err)
		}
		rec := Record{}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("keystone: decode %s row: %w", p.table, err)
		}
		rec["id"] = id
		out = append(out, project(rec, query))
	}
	return out, rows.Err()
}

func (p *PostgresList) CreateOne(ctx context.Context, data map[string]any) (Record, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("keystone: encode %s row: %w", p.table, err)
	}

	var id string
	err = p.db.QueryRowContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (data) VALUES ($1) RETURNING id`,
		pq.QuoteIdentifier(p.table),
	), raw).Scan(&id)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("keystone: insert %s: %w", p.table, err)
	}

	rec := Record{}
	for k, v := range data {
		rec[k] = v
	}
	rec["id"] = id
	return rec, nil
}

// whereClause builds a WHERE clause over the id column and jsonb fields.
// Field names are passed as parameters, never interpolated.
func whereClause(where map[string]any) (string, []any) {
	if len(where) == 0 {
		return "", nil
	}

	var (
		conds []string
		args  []any
	)
	for field, value := range where {
		if field == "id" {
			args = append(args, StringID(value))
			conds = append(conds, fmt.Sprintf("id = $%d", len(args)))
			continue
		}
		if value == nil {
			args = append(args, field)
			conds = append(conds, fmt.Sprintf("data->>($%d::text) IS NULL", len(args)))
			continue
		}
		args = append(args, field, StringID(value))
		conds = append(conds, fmt.Sprintf("data->>($%d::text) = $%d", len(args)-1, len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
