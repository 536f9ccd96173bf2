package db

import (
	"context"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Merge describes a keyed write of many rows into one table. Rows are
// staged with COPY and folded in with INSERT ... ON CONFLICT, so a rerun
// over the same games replaces their rows instead of duplicating them.
type Merge struct {
	Table   string   // target table, optionally "schema.table"
	Columns []string // column order of every row
	Keys    []string // unique constraint the rows collide on
}

func (m Merge) validate() error {
	switch {
	case m.Table == "":
		return eris.New("db: merge: table is required")
	case len(m.Columns) == 0:
		return eris.Errorf("db: merge %s: no columns", m.Table)
	case len(m.Keys) == 0:
		return eris.Errorf("db: merge %s: no key columns", m.Table)
	}
	for _, k := range m.Keys {
		if !slices.Contains(m.Columns, k) {
			return eris.Errorf("db: merge %s: key %q is not a column", m.Table, k)
		}
	}
	return nil
}

func (m Merge) target() pgx.Identifier {
	return pgx.Identifier(strings.SplitN(m.Table, ".", 2))
}

func (m Merge) stage() pgx.Identifier {
	return pgx.Identifier{"_stage_" + strings.ReplaceAll(m.Table, ".", "_")}
}

// stageSQL creates a session-local copy of the target that vanishes on
// commit.
func (m Merge) stageSQL() string {
	return "CREATE TEMP TABLE " + m.stage().Sanitize() +
		" (LIKE " + m.target().Sanitize() + " INCLUDING DEFAULTS) ON COMMIT DROP"
}

// mergeSQL folds the staged rows into the target. Non-key columns are
// overwritten on conflict; a table of keys only does nothing.
func (m Merge) mergeSQL() string {
	cols := quoted(m.Columns)
	var sb strings.Builder
	sb.WriteString("INSERT INTO " + m.target().Sanitize())
	sb.WriteString(" (" + cols + ") SELECT " + cols + " FROM " + m.stage().Sanitize())
	sb.WriteString(" ON CONFLICT (" + quoted(m.Keys) + ")")

	var sets []string
	for _, c := range m.Columns {
		if slices.Contains(m.Keys, c) {
			continue
		}
		id := pgx.Identifier{c}.Sanitize()
		sets = append(sets, id+" = EXCLUDED."+id)
	}
	if len(sets) == 0 {
		sb.WriteString(" DO NOTHING")
	} else {
		sb.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
	}
	return sb.String()
}

// Exec writes rows in one transaction and returns the number of target
// rows inserted or updated.
func (m Merge) Exec(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if err := m.validate(); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: begin", m.Table)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, m.stageSQL()); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: create stage", m.Table)
	}
	if _, err := tx.CopyFrom(ctx, m.stage(), m.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: copy %d rows", m.Table, len(rows))
	}
	tag, err := tx.Exec(ctx, m.mergeSQL())
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: insert", m.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: commit", m.Table)
	}
	return tag.RowsAffected(), nil
}

func quoted(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(out, ", ")
}
