package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"voyagemail/internal/config"
	"voyagemail/internal/ingest"
)

// TableStore manages the per-document-type tables. Table names arrive at
// runtime, expanded from subject captures, so identifiers are quoted instead
// of interpolated into prepared statements.
type TableStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTableStore(db *pgxpool.Pool, logger *zap.Logger) *TableStore {
	return &TableStore{db: db, logger: logger}
}

// TableExists probes the current schema for the table.
func (s *TableStore) TableExists(ctx context.Context, table string) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM information_schema.tables
            WHERE table_schema = current_schema() AND table_name = $1
        )
    `
	var exists bool
	err := s.db.QueryRow(ctx, query, table).Scan(&exists)
	return exists, err
}

// CreateTable creates the table with one column per configured field, typed
// after the column's declared kind.
func (s *TableStore) CreateTable(ctx context.Context, table string, cols []config.ColumnSpec) error {
	ddl := buildCreateTable(table, cols)
	s.logger.Debug("executing DDL", zap.String("sql", ddl))
	_, err := s.db.Exec(ctx, ddl)
	return err
}

// InsertRow appends one coerced row. An empty row still produces a record so
// the table row count keeps matching the CSV row count.
func (s *TableStore) InsertRow(ctx context.Context, table string, row []ingest.Field) error {
	query, args := buildInsert(table, row)
	_, err := s.db.Exec(ctx, query, args...)
	return err
}

func buildCreateTable(table string, cols []config.ColumnSpec) string {
	defs := make([]string, 0, len(cols))
	seen := make(map[string]bool, len(cols))
	for i := range cols {
		col := &cols[i]
		name := col.FieldName()
		if seen[name] {
			continue
		}
		seen[name] = true
		defs = append(defs, fmt.Sprintf("%s %s", pgx.Identifier{name}.Sanitize(), sqlType(col.Kind())))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", pgx.Identifier{table}.Sanitize(), strings.Join(defs, ", "))
}

func buildInsert(table string, row []ingest.Field) (string, []any) {
	quoted := pgx.Identifier{table}.Sanitize()
	if len(row) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quoted), nil
	}
	names := make([]string, len(row))
	placeholders := make([]string, len(row))
	args := make([]any, len(row))
	for i, f := range row {
		names[i] = pgx.Identifier{f.Name}.Sanitize()
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = f.Value
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoted,
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
	)
	return query, args
}

func sqlType(kind config.ValueKind) string {
	switch kind {
	case config.KindDateTime:
		return "timestamp"
	case config.KindInteger:
		return "bigint"
	case config.KindFloat:
		return "double precision"
	default:
		return "text"
	}
}
