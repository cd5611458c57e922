package activerecord

import (
	"fmt"
	"log/slog"
	"sync"
)

// Type is the per-entity-type descriptor: table and key conventions,
// relationship registry, and the validator/callback collaborators. Types are
// defined once at startup and treated as read-only afterwards; concurrent
// reads need no synchronization.
type Type struct {
	name       string
	table      string
	pk         string
	datasource string
	validator  Validator
	callbacks  CallbackManager
	log        *slog.Logger

	rels map[string]*Relationship

	// Column metadata, either declared via WithColumns or probed once.
	columns      []string
	probeMu      sync.Mutex
	hasCreatedAt bool
	hasUpdatedAt bool
}

// types is the process-wide entity type registry, written at startup via
// Define and read-only afterwards.
var types = map[string]*Type{}

// TypeOption configures a Type at definition time.
type TypeOption func(*Type)

// WithTable overrides the pluralized table-name convention.
func WithTable(table string) TypeOption {
	return func(t *Type) { t.table = table }
}

// WithPrimaryKey overrides the "id" primary-key convention.
func WithPrimaryKey(column string) TypeOption {
	return func(t *Type) { t.pk = column }
}

// WithDatasource binds the type to a named datasource instead of "default".
func WithDatasource(name string) TypeOption {
	return func(t *Type) { t.datasource = name }
}

// WithColumns declares the table's columns up front, skipping the one-time
// schema probe.
func WithColumns(columns ...string) TypeOption {
	return func(t *Type) { t.setColumns(columns) }
}

// WithValidator sets the validator Save() consults.
func WithValidator(v Validator) TypeOption {
	return func(t *Type) { t.validator = v }
}

// WithCallbacks sets the lifecycle callback manager.
func WithCallbacks(c CallbackManager) TypeOption {
	return func(t *Type) { t.callbacks = c }
}

// WithLogger sets the logger used for advisory diagnostics.
func WithLogger(log *slog.Logger) TypeOption {
	return func(t *Type) { t.log = log }
}

// Define registers an entity type under name and returns its descriptor.
// The table name defaults to the tableized type name ("Order" -> "orders"),
// the primary key to "id", and the datasource to DefaultDatasource.
// Call Define once per type during startup.
func Define(name string, opts ...TypeOption) *Type {
	t := &Type{
		name:       name,
		table:      tableize(name),
		pk:         "id",
		datasource: DefaultDatasource,
		log:        slog.Default(),
		rels:       map[string]*Relationship{},
	}
	for _, opt := range opts {
		opt(t)
	}
	types[name] = t
	return t
}

// TypeOf returns the entity type registered under name.
func TypeOf(name string) (*Type, bool) {
	t, ok := types[name]
	return t, ok
}

func (t *Type) Name() string       { return t.name }
func (t *Type) Table() string      { return t.table }
func (t *Type) PrimaryKey() string { return t.pk }

func (t *Type) executor() (Executor, error) {
	return Datasource(t.datasource)
}

func (t *Type) setColumns(columns []string) {
	t.columns = columns
	t.hasCreatedAt = false
	t.hasUpdatedAt = false
	for _, col := range columns {
		switch col {
		case "created_at":
			t.hasCreatedAt = true
		case "updated_at":
			t.hasUpdatedAt = true
		}
	}
}

// Columns returns the table's column names, probing the schema if they were
// not declared. The probe is a zero-row select; only a successful probe is
// cached, so a transient failure (say, a datasource registered late) does
// not poison the type.
func (t *Type) Columns() ([]string, error) {
	t.probeMu.Lock()
	defer t.probeMu.Unlock()
	if t.columns != nil {
		return t.columns, nil
	}
	exec, err := t.executor()
	if err != nil {
		return nil, err
	}
	res, err := exec.Execute("SELECT * FROM "+t.table+" LIMIT 0", nil)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", t.table, err)
	}
	t.setColumns(res.Columns)
	return t.columns, nil
}

// timestamps reports whether created_at/updated_at exist, forcing the probe
// if needed.
func (t *Type) timestamps() (createdAt, updatedAt bool, err error) {
	if _, err := t.Columns(); err != nil {
		return false, false, err
	}
	return t.hasCreatedAt, t.hasUpdatedAt, nil
}

// New creates an unpersisted record with the given attributes. Attribute
// writes from here on are dirty against an empty baseline.
func (t *Type) New(attrs Row) *Record {
	r := &Record{
		typ:        t,
		attributes: Row{},
		original:   Row{},
		loaded:     map[string]any{},
	}
	for field, value := range attrs {
		r.Set(field, value)
	}
	return r
}

// hydrate builds a persisted record from a fetched row. The baseline
// snapshot equals the attributes, so the dirty set starts empty.
func (t *Type) hydrate(row Row) *Record {
	return &Record{
		typ:        t,
		attributes: row.clone(),
		original:   row.clone(),
		persisted:  true,
		loaded:     map[string]any{},
	}
}

// Where returns a table-bound query pre-scoped to this type whose terminal
// methods hydrate records. An empty Cond adds no filter.
func (t *Type) Where(cond Cond) *Query {
	q := &Query{typ: t, table: t.table, builder: NewBuilder()}
	return q.Where(cond)
}

// All returns an unfiltered query over the type's table.
func (t *Type) All() *Query {
	return t.Where(Cond{})
}

// Find fetches one record by primary key, returning nil when no row
// matches.
func (t *Type) Find(id any) (*Record, error) {
	return t.Where(Cond{t.pk: id}).First()
}

// FindAll fetches the records matching the given primary keys with a single
// IN query. Missing ids are simply absent from the result; the result is
// always a slice, even for one id.
func (t *Type) FindAll(ids []any) ([]*Record, error) {
	if len(ids) == 0 {
		return []*Record{}, nil
	}
	return t.Where(Cond{t.pk: In(ids...)}).Get()
}
