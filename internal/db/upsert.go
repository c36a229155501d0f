package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Upsert loads rows into Table through a COPY into a staging table followed
// by one INSERT ... ON CONFLICT (Key).
type Upsert struct {
	Table   string   // target table, optionally schema-qualified
	Columns []string // column order of every row
	Key     string   // unique column; must appear in Columns
	Refresh []string // columns overwritten on conflict; empty keeps existing rows
}

func (u Upsert) keyIndex() (int, error) {
	if len(u.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns")
	}
	for i, c := range u.Columns {
		if c == u.Key {
			return i, nil
		}
	}
	return 0, eris.Errorf("db: upsert: key %q not in columns", u.Key)
}

// Run executes the upsert and returns the number of rows inserted or
// refreshed. Rows repeating a key collapse to the last one, since a single
// INSERT ... ON CONFLICT cannot touch the same target row twice.
func (u Upsert) Run(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	key, err := u.keyIndex()
	if err != nil {
		return 0, err
	}
	rows = lastByKey(rows, key)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	stage := u.stagingTable()
	if _, err := tx.Exec(ctx, fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{stage}.Sanitize(), qualified(u.Table),
	)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: stage %s", u.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, u.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy into %s", stage)
	}

	tag, err := tx.Exec(ctx, u.statement())
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: insert into %s", u.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func (u Upsert) stagingTable() string {
	return "_stage_" + strings.ReplaceAll(u.Table, ".", "_")
}

func (u Upsert) statement() string {
	cols := identList(u.Columns)
	action := "DO NOTHING"
	if len(u.Refresh) > 0 {
		sets := make([]string, len(u.Refresh))
		for i, c := range u.Refresh {
			id := pgx.Identifier{c}.Sanitize()
			sets[i] = id + " = EXCLUDED." + id
		}
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		qualified(u.Table), cols, cols,
		pgx.Identifier{u.stagingTable()}.Sanitize(),
		pgx.Identifier{u.Key}.Sanitize(), action)
}

// lastByKey keeps the first position of each key but the last row seen for it.
func lastByKey(rows [][]any, key int) [][]any {
	pos := make(map[string]int, len(rows))
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		k := fmt.Sprint(r[key])
		if i, ok := pos[k]; ok {
			out[i] = r
			continue
		}
		pos[k] = len(out)
		out = append(out, r)
	}
	return out
}

// qualified quotes a table name that may carry a schema prefix.
func qualified(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func identList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
