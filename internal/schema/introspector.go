package schema

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ColumnMeta mirrors information_schema.columns for one column.
type ColumnMeta struct {
	Type     string `db:"data_type"`
	Nullable bool   `db:"-"`
	UDTName  string `db:"udt_name"`
}

type ForeignKey struct {
	Column        string `db:"column_name"`
	ForeignTable  string `db:"foreign_table"`
	ForeignColumn string `db:"foreign_column"`
}

type Constraints struct {
	Primary []string
	Foreign []ForeignKey
	Unique  []string
}

// TableMeta is the introspected shape of one table: column metadata plus
// primary/foreign/unique constraints.
type TableMeta struct {
	Name        string
	Columns     map[string]ColumnMeta
	Constraints Constraints
}

// Introspector reads live column and constraint metadata from Postgres.
// The fixture harness cross-checks generated rows against it so schema
// drift shows up as a test failure, not a production incident.
type Introspector struct {
	db     *sqlx.DB
	schema string
}

func NewIntrospector(db *sqlx.DB) *Introspector {
	return &Introspector{db: db, schema: "public"}
}

// Tables lists base tables in the target schema.
func (i *Introspector) Tables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	var tables []string
	if err := i.db.SelectContext(ctx, &tables, q, i.schema); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

type columnRow struct {
	Name     string `db:"column_name"`
	DataType string `db:"data_type"`
	Nullable string `db:"is_nullable"`
	UDTName  string `db:"udt_name"`
}

type keyColumnRow struct {
	ConstraintType string `db:"constraint_type"`
	Column         string `db:"column_name"`
}

// Table introspects one table: columns and constraints.
func (i *Introspector) Table(ctx context.Context, name string) (*TableMeta, error) {
	const columnsQuery = `
		SELECT column_name, data_type, is_nullable, udt_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	var columns []columnRow
	if err := i.db.SelectContext(ctx, &columns, columnsQuery, i.schema, name); err != nil {
		return nil, fmt.Errorf("introspect columns of %s: %w", name, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s does not exist in schema %s", name, i.schema)
	}

	meta := &TableMeta{
		Name:    name,
		Columns: make(map[string]ColumnMeta, len(columns)),
	}
	for _, c := range columns {
		meta.Columns[c.Name] = ColumnMeta{
			Type:     c.DataType,
			Nullable: c.Nullable == "YES",
			UDTName:  c.UDTName,
		}
	}

	if err := i.loadKeyConstraints(ctx, name, meta); err != nil {
		return nil, err
	}
	if err := i.loadForeignKeys(ctx, name, meta); err != nil {
		return nil, err
	}

	return meta, nil
}

func (i *Introspector) loadKeyConstraints(ctx context.Context, name string, meta *TableMeta) error {
	const q = `
		SELECT tc.constraint_type, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2
			AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE')
		ORDER BY kcu.ordinal_position`

	var rows []keyColumnRow
	if err := i.db.SelectContext(ctx, &rows, q, i.schema, name); err != nil {
		return fmt.Errorf("introspect key constraints of %s: %w", name, err)
	}

	for _, r := range rows {
		switch r.ConstraintType {
		case "PRIMARY KEY":
			meta.Constraints.Primary = append(meta.Constraints.Primary, r.Column)
		case "UNIQUE":
			meta.Constraints.Unique = append(meta.Constraints.Unique, r.Column)
		}
	}
	return nil
}

func (i *Introspector) loadForeignKeys(ctx context.Context, name string, meta *TableMeta) error {
	const q = `
		SELECT kcu.column_name,
			ccu.table_name AS foreign_table,
			ccu.column_name AS foreign_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2
			AND tc.constraint_type = 'FOREIGN KEY'`

	var rows []ForeignKey
	if err := i.db.SelectContext(ctx, &rows, q, i.schema, name); err != nil {
		return fmt.Errorf("introspect foreign keys of %s: %w", name, err)
	}
	meta.Constraints.Foreign = rows
	return nil
}

// Snapshot introspects every listed table in one pass.
func (i *Introspector) Snapshot(ctx context.Context, tables []string) (map[string]*TableMeta, error) {
	snapshot := make(map[string]*TableMeta, len(tables))
	for _, t := range tables {
		meta, err := i.Table(ctx, t)
		if err != nil {
			return nil, err
		}
		snapshot[t] = meta
	}
	return snapshot, nil
}
