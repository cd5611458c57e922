package activerecord

import (
	"database/sql"
	"log/slog"
	"strings"
)

// Driver adapts a database/sql handle to the Executor interface. SELECT
// statements go through Query and are materialized into Rows; everything
// else goes through Exec and reports the generated key and affected-row
// count. Statements are logged at debug level.
type Driver struct {
	db  *sql.DB
	log *slog.Logger
}

// Open wraps sql.Open and returns a Driver. Connection pooling stays with
// database/sql.
func Open(driverName, dsn string) (*Driver, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return OpenDB(db), nil
}

// OpenDB wraps an existing database/sql handle with a Driver.
func OpenDB(db *sql.DB) *Driver {
	return &Driver{db: db, log: slog.Default()}
}

// WithLogger sets the statement logger. A nil logger restores the default.
func (d *Driver) WithLogger(log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	d.log = log
	return d
}

// DB returns the underlying database/sql handle.
func (d *Driver) DB() *sql.DB { return d.db }

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.db.Close() }

// Execute implements Executor.
func (d *Driver) Execute(query string, args []any) (*Result, error) {
	d.log.Debug("execute", "sql", query, "bindings", len(args))
	if isQuery(query) {
		return d.query(query, args)
	}
	res, err := d.db.Exec(query, args...)
	if err != nil {
		return nil, err
	}
	out := &Result{}
	// Not every driver reports these; treat them as best effort.
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	return out, nil
}

func (d *Driver) query(query string, args []any) (*Result, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			// Text columns come back as []byte from most drivers.
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, rows.Err()
}

func isQuery(query string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT")
}
