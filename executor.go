package activerecord

import "fmt"

// Row is one result row as a column-name-to-value mapping.
type Row map[string]any

// clone returns a shallow copy of the row.
func (r Row) clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Result is the outcome of one statement execution.
type Result struct {
	// Rows holds the fetched rows for queries; empty for writes.
	Rows []Row
	// Columns holds the result column names, populated even when no rows
	// matched. The type probe relies on this.
	Columns []string
	// LastInsertID is the generated key of an INSERT, when the driver
	// reports one.
	LastInsertID int64
	// RowsAffected is the affected-row count of a write.
	RowsAffected int64
}

// Executor is the execution primitive the rest of the package builds on.
// Bindings are applied positionally in the exact order given.
// Implementations must remain compatible with database/sql, mocks, and
// test doubles.
type Executor interface {
	Execute(query string, args []any) (*Result, error)
}

// datasources is the process-wide executor registry. It is written during
// application startup (RegisterDatasource, Config.Open) and treated as
// read-only afterwards, so lookups need no synchronization.
var datasources = map[string]Executor{}

// DefaultDatasource is the datasource name entity types use unless
// overridden with WithDatasource.
const DefaultDatasource = "default"

// RegisterDatasource registers an executor under a name. Call it once per
// datasource during startup, before any queries run.
func RegisterDatasource(name string, exec Executor) {
	datasources[name] = exec
}

// Datasource returns the executor registered under name.
func Datasource(name string) (Executor, error) {
	exec, ok := datasources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDatasource, name)
	}
	return exec, nil
}
