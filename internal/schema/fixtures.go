package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CriticalTables are the tables the regression harness must be able to
// generate valid fixture rows for.
var CriticalTables = []string{
	"users",
	"events",
	"guests",
	"ticket_types",
	"tickets",
	"payments",
	"payment_webhooks",
	"user_template_purchases",
	"marketplace_designers",
	"marketplace_templates",
	"marketplace_purchases",
	"system_backups",
	"system_logs",
}

// recognizedTypes is the closed set of scalar column types fixture
// generation understands. Array columns are accepted when their element
// type would be.
var recognizedTypes = map[string]bool{
	"integer":                     true,
	"bigint":                      true,
	"smallint":                    true,
	"numeric":                     true,
	"decimal":                     true,
	"real":                        true,
	"double precision":            true,
	"character varying":           true,
	"character":                   true,
	"varchar":                     true,
	"text":                        true,
	"timestamp without time zone": true,
	"timestamp with time zone":    true,
	"timestamp":                   true,
	"date":                        true,
	"time without time zone":      true,
	"time with time zone":         true,
	"time":                        true,
	"boolean":                     true,
	"uuid":                        true,
	"json":                        true,
	"jsonb":                       true,
}

// IsRecognizedType reports whether fixture generation understands the
// column. ARRAY columns carry the element type in udt_name with a leading
// underscore.
func IsRecognizedType(col ColumnMeta) bool {
	if col.Type == "ARRAY" {
		return strings.HasPrefix(col.UDTName, "_")
	}
	return recognizedTypes[strings.ToLower(col.Type)]
}

// FixtureFactory produces one valid row per table from introspected
// metadata. Domain columns with constrained value sets get explicit
// overrides; everything else is generated from the column type.
type FixtureFactory struct {
	overrides map[string]func() interface{}
	sequence  int64
	now       func() time.Time
}

func NewFixtureFactory() *FixtureFactory {
	f := &FixtureFactory{
		overrides: make(map[string]func() interface{}),
		now:       func() time.Time { return time.Now().UTC() },
	}

	f.Override("payments.status", func() interface{} { return "pending" })
	f.Override("payments.currency", func() interface{} { return "XOF" })
	f.Override("payments.gateway", func() interface{} { return "stripe" })
	f.Override("payment_webhooks.event_type", func() interface{} { return "payment.completed" })
	f.Override("payment_webhooks.service_name", func() interface{} { return "payment-service" })
	f.Override("tickets.status", func() interface{} { return "valid" })
	f.Override("users.email", func() interface{} {
		f.sequence++
		return fmt.Sprintf("fixture-%d@example.com", f.sequence)
	})
	f.Override("system_logs.level", func() interface{} { return "info" })

	return f
}

// Override registers a generator for "table.column".
func (f *FixtureFactory) Override(key string, gen func() interface{}) {
	f.overrides[key] = gen
}

// GenerateRow produces a row satisfying the table's column metadata.
// Auto-increment primary keys are left to the database.
func (f *FixtureFactory) GenerateRow(meta *TableMeta) (map[string]interface{}, error) {
	row := make(map[string]interface{}, len(meta.Columns))

	for name, col := range meta.Columns {
		if f.isGeneratedPrimary(meta, name, col) {
			continue
		}

		if gen, ok := f.overrides[meta.Name+"."+name]; ok {
			row[name] = gen()
			continue
		}

		value, err := f.valueFor(col)
		if err != nil {
			return nil, fmt.Errorf("table %s column %s: %w", meta.Name, name, err)
		}
		row[name] = value
	}

	return row, nil
}

func (f *FixtureFactory) isGeneratedPrimary(meta *TableMeta, name string, col ColumnMeta) bool {
	for _, pk := range meta.Constraints.Primary {
		if pk == name {
			switch strings.ToLower(col.Type) {
			case "integer", "bigint", "smallint":
				return true
			}
		}
	}
	return false
}

func (f *FixtureFactory) valueFor(col ColumnMeta) (interface{}, error) {
	if col.Type == "ARRAY" {
		element := ColumnMeta{UDTName: strings.TrimPrefix(col.UDTName, "_")}
		element.Type = dataTypeForUDT(element.UDTName)
		if !IsRecognizedType(element) {
			return nil, fmt.Errorf("unrecognized array element type %q", col.UDTName)
		}
		v, err := f.valueFor(element)
		if err != nil {
			return nil, err
		}
		return []interface{}{v}, nil
	}

	switch strings.ToLower(col.Type) {
	case "integer", "bigint", "smallint":
		f.sequence++
		return f.sequence, nil
	case "numeric", "decimal", "real", "double precision":
		return 99.99, nil
	case "character varying", "character", "varchar", "text":
		f.sequence++
		return fmt.Sprintf("fixture-%d", f.sequence), nil
	case "timestamp without time zone", "timestamp with time zone", "timestamp":
		return f.now(), nil
	case "date":
		return f.now().Truncate(24 * time.Hour), nil
	case "time without time zone", "time with time zone", "time":
		return "12:00:00", nil
	case "boolean":
		return true, nil
	case "uuid":
		return uuid.New().String(), nil
	case "json", "jsonb":
		return json.RawMessage(`{"fixture": true}`), nil
	default:
		return nil, fmt.Errorf("unrecognized column type %q", col.Type)
	}
}

// ValidateRow asserts the row conforms to the table metadata: every
// non-nullable column is populated (generated primaries excepted), no
// unknown columns exist, and every value matches its column type.
func (f *FixtureFactory) ValidateRow(meta *TableMeta, row map[string]interface{}) error {
	for name := range row {
		if _, ok := meta.Columns[name]; !ok {
			return fmt.Errorf("row has column %q not present in table %s", name, meta.Name)
		}
	}

	for name, col := range meta.Columns {
		value, present := row[name]
		if !present || value == nil {
			if col.Nullable || f.isGeneratedPrimary(meta, name, col) {
				continue
			}
			return fmt.Errorf("non-nullable column %s.%s has no value", meta.Name, name)
		}
		if err := checkValueType(col, value); err != nil {
			return fmt.Errorf("column %s.%s: %w", meta.Name, name, err)
		}
	}

	return nil
}

func checkValueType(col ColumnMeta, value interface{}) error {
	if col.Type == "ARRAY" {
		switch value.(type) {
		case []interface{}, []string, []int64:
			return nil
		}
		return fmt.Errorf("expected array value, got %T", value)
	}

	switch strings.ToLower(col.Type) {
	case "integer", "bigint", "smallint":
		switch value.(type) {
		case int, int32, int64:
			return nil
		}
		return fmt.Errorf("expected integer value, got %T", value)
	case "numeric", "decimal", "real", "double precision":
		switch value.(type) {
		case float32, float64, int, int64:
			return nil
		}
		return fmt.Errorf("expected numeric value, got %T", value)
	case "character varying", "character", "varchar", "text":
		if _, ok := value.(string); ok {
			return nil
		}
		return fmt.Errorf("expected string value, got %T", value)
	case "timestamp without time zone", "timestamp with time zone", "timestamp", "date":
		if _, ok := value.(time.Time); ok {
			return nil
		}
		return fmt.Errorf("expected time value, got %T", value)
	case "time without time zone", "time with time zone", "time":
		if _, ok := value.(string); ok {
			return nil
		}
		return fmt.Errorf("expected time-of-day string, got %T", value)
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
		return fmt.Errorf("expected boolean value, got %T", value)
	case "uuid":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected uuid string, got %T", value)
		}
		if _, err := uuid.Parse(s); err != nil {
			return fmt.Errorf("invalid uuid %q", s)
		}
		return nil
	case "json", "jsonb":
		switch v := value.(type) {
		case json.RawMessage:
			if !json.Valid(v) {
				return fmt.Errorf("invalid json payload")
			}
			return nil
		case string:
			if !json.Valid([]byte(v)) {
				return fmt.Errorf("invalid json payload")
			}
			return nil
		case map[string]interface{}:
			return nil
		}
		return fmt.Errorf("expected json value, got %T", value)
	default:
		return fmt.Errorf("unrecognized column type %q", col.Type)
	}
}

// ValidateConstraints asserts every constraint references a column that
// exists on the table.
func ValidateConstraints(meta *TableMeta) error {
	for _, col := range meta.Constraints.Primary {
		if _, ok := meta.Columns[col]; !ok {
			return fmt.Errorf("primary key references missing column %s.%s", meta.Name, col)
		}
	}
	for _, col := range meta.Constraints.Unique {
		if _, ok := meta.Columns[col]; !ok {
			return fmt.Errorf("unique constraint references missing column %s.%s", meta.Name, col)
		}
	}
	for _, fk := range meta.Constraints.Foreign {
		if _, ok := meta.Columns[fk.Column]; !ok {
			return fmt.Errorf("foreign key references missing column %s.%s", meta.Name, fk.Column)
		}
		if fk.ForeignTable == "" || fk.ForeignColumn == "" {
			return fmt.Errorf("foreign key on %s.%s has no target", meta.Name, fk.Column)
		}
	}
	return nil
}

func dataTypeForUDT(udt string) string {
	switch udt {
	case "int2":
		return "smallint"
	case "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "varchar":
		return "character varying"
	case "bpchar":
		return "character"
	case "timestamptz":
		return "timestamp with time zone"
	case "bool":
		return "boolean"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	default:
		return udt
	}
}
