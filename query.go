package activerecord

import "strconv"

// TableQuery binds a Builder to one table name so terminal calls don't
// repeat it. Terminals return raw row maps; for hydrated records use the
// entity-bound Query returned by Type.Where/Type.All.
type TableQuery struct {
	table      string
	datasource string
	builder    *Builder
}

// Table starts a raw query against a table on the default datasource.
func Table(name string) *TableQuery {
	return &TableQuery{table: name, datasource: DefaultDatasource, builder: NewBuilder()}
}

// Datasource switches the query to a named datasource.
func (q *TableQuery) Datasource(name string) *TableQuery {
	q.datasource = name
	return q
}

func (q *TableQuery) Select(columns ...string) *TableQuery {
	q.builder.Select(columns...)
	return q
}

func (q *TableQuery) Where(cond Cond) *TableQuery {
	q.builder.Where(cond)
	return q
}

func (q *TableQuery) WhereRaw(fragment string, args ...any) *TableQuery {
	q.builder.WhereRaw(fragment, args...)
	return q
}

func (q *TableQuery) Join(kind, table, on string) *TableQuery {
	q.builder.Join(kind, table, on)
	return q
}

func (q *TableQuery) OrderBy(term string) *TableQuery {
	q.builder.OrderBy(term)
	return q
}

func (q *TableQuery) Limit(n int) *TableQuery {
	q.builder.Limit(n)
	return q
}

func (q *TableQuery) Offset(n int) *TableQuery {
	q.builder.Offset(n)
	return q
}

// Get compiles and executes the query, returning the matched rows.
func (q *TableQuery) Get() ([]Row, error) {
	exec, err := Datasource(q.datasource)
	if err != nil {
		return nil, err
	}
	query, args, err := q.builder.Compile(q.table)
	if err != nil {
		return nil, err
	}
	res, err := exec.Execute(query, args)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// First returns the first matched row, or nil when nothing matches.
func (q *TableQuery) First() (Row, error) {
	q.builder.Limit(1)
	rows, err := q.Get()
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Count executes the COUNT(*) rewrite of the query.
func (q *TableQuery) Count() (int64, error) {
	exec, err := Datasource(q.datasource)
	if err != nil {
		return 0, err
	}
	query, args, err := q.builder.CompileCount(q.table)
	if err != nil {
		return 0, err
	}
	res, err := exec.Execute(query, args)
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	return toInt64(res.Rows[0]["count"]), nil
}

// Query is the entity-bound flavor of TableQuery: terminals hydrate records
// and eager-load requested relationships.
type Query struct {
	typ      *Type
	table    string
	builder  *Builder
	includes []includeSpec
}

func (q *Query) Select(columns ...string) *Query {
	q.builder.Select(columns...)
	return q
}

func (q *Query) Where(cond Cond) *Query {
	q.builder.Where(cond)
	return q
}

func (q *Query) WhereRaw(fragment string, args ...any) *Query {
	q.builder.WhereRaw(fragment, args...)
	return q
}

func (q *Query) OrderBy(term string) *Query {
	q.builder.OrderBy(term)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.builder.Limit(n)
	return q
}

func (q *Query) Offset(n int) *Query {
	q.builder.Offset(n)
	return q
}

// Includes requests eager loading with automatic strategy selection.
// Dot-separated paths ("posts.comments") load nested relationships.
func (q *Query) Includes(paths ...string) *Query {
	for _, p := range paths {
		q.includes = append(q.includes, includeSpec{path: p, strat: strategyAuto})
	}
	return q
}

// Joins requests eager loading and forces the JOIN strategy for the first
// path segment.
func (q *Query) Joins(paths ...string) *Query {
	for _, p := range paths {
		q.includes = append(q.includes, includeSpec{path: p, strat: strategyJoin})
	}
	return q
}

// Preload requests eager loading and forces the separate-query strategy.
func (q *Query) Preload(paths ...string) *Query {
	for _, p := range paths {
		q.includes = append(q.includes, includeSpec{path: p, strat: strategySeparate})
	}
	return q
}

// Get executes the query, hydrates the matched rows, and resolves all
// eager-load requests.
func (q *Query) Get() ([]*Record, error) {
	return newLoader(q.typ, q.includes).run(q.builder)
}

// First returns the first matched record with its eager loads resolved, or
// nil when nothing matches.
func (q *Query) First() (*Record, error) {
	q.builder.Limit(1)
	records, err := q.Get()
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// Count executes the COUNT(*) rewrite of the query. Eager-load requests do
// not affect the count.
func (q *Query) Count() (int64, error) {
	exec, err := q.typ.executor()
	if err != nil {
		return 0, err
	}
	query, args, err := q.builder.CompileCount(q.table)
	if err != nil {
		return 0, err
	}
	res, err := exec.Execute(query, args)
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	return toInt64(res.Rows[0]["count"]), nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		out, _ := strconv.ParseInt(n, 10, 64)
		return out
	default:
		return 0
	}
}
