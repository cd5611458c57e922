package activerecord

import (
	"fmt"
	"sort"
	"strings"
)

// Builder accumulates select/where/join/order/limit state and compiles it
// into parameterized SQL. Caller-supplied values are never interpolated into
// the SQL text; they are emitted as positional bindings in the exact
// left-to-right order their placeholders appear.
//
// A Builder is used by one logical operation and is not safe for concurrent
// mutation.
type Builder struct {
	columns []string
	wheres  []whereTerm
	joins   []joinClause
	orders  []string
	limit   int
	offset  int
}

// whereTerm is one entry in the ordered WHERE list: either a condition
// expression or a raw fragment with its own bindings.
type whereTerm struct {
	cond Cond
	raw  string
	args []any
}

type joinClause struct {
	kind  string
	table string
	on    string
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{limit: -1, offset: -1}
}

// Select appends columns to the select list. The default list is "*".
func (b *Builder) Select(columns ...string) *Builder {
	b.columns = append(b.columns, columns...)
	return b
}

// Where appends a condition expression. Expressions across calls are AND-ed.
func (b *Builder) Where(cond Cond) *Builder {
	if len(cond) > 0 {
		b.wheres = append(b.wheres, whereTerm{cond: cond})
	}
	return b
}

// WhereRaw appends a raw SQL fragment with its bindings. The fragment is
// AND-ed with the other where terms in call order.
func (b *Builder) WhereRaw(fragment string, args ...any) *Builder {
	b.wheres = append(b.wheres, whereTerm{raw: fragment, args: args})
	return b
}

// Join appends a join clause, e.g. Join("LEFT OUTER", "users", "users.id = posts.author_id").
func (b *Builder) Join(kind, table, on string) *Builder {
	b.joins = append(b.joins, joinClause{kind: kind, table: table, on: on})
	return b
}

// OrderBy appends an order term, e.g. "created_at DESC".
func (b *Builder) OrderBy(term string) *Builder {
	b.orders = append(b.orders, term)
	return b
}

// Limit sets the row limit. Negative values mean unset.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Offset sets the row offset. Negative values mean unset.
func (b *Builder) Offset(n int) *Builder {
	b.offset = n
	return b
}

// Compile emits the SELECT statement for the given table along with its
// positional bindings.
func (b *Builder) Compile(table string) (string, []any, error) {
	cols := "*"
	if len(b.columns) > 0 {
		cols = strings.Join(b.columns, ", ")
	}
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	args, err := b.writeJoinsAndWhere(&sb)
	if err != nil {
		return "", nil, err
	}
	if len(b.orders) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orders, ", "))
	}
	if b.limit >= 0 {
		fmt.Fprintf(&sb, " LIMIT %d", b.limit)
	}
	if b.offset >= 0 {
		fmt.Fprintf(&sb, " OFFSET %d", b.offset)
	}
	return sb.String(), args, nil
}

// CompileCount emits a COUNT(*) rewrite of the query. Ordering and
// limit/offset are dropped; they cannot change the count of a flat query.
func (b *Builder) CompileCount(table string) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) AS count FROM ")
	sb.WriteString(table)
	args, err := b.writeJoinsAndWhere(&sb)
	if err != nil {
		return "", nil, err
	}
	return sb.String(), args, nil
}

func (b *Builder) writeJoinsAndWhere(sb *strings.Builder) ([]any, error) {
	for _, j := range b.joins {
		fmt.Fprintf(sb, " %s JOIN %s ON %s", j.kind, j.table, j.on)
	}
	var args []any
	var frags []string
	for _, term := range b.wheres {
		if term.raw != "" {
			frags = append(frags, term.raw)
			args = append(args, term.args...)
			continue
		}
		condFrags, condArgs, err := compileCond(term.cond)
		if err != nil {
			return nil, err
		}
		frags = append(frags, condFrags...)
		args = append(args, condArgs...)
	}
	if len(frags) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(frags, " AND "))
	}
	return args, nil
}

// compileCond turns one condition expression into SQL fragments and bindings.
// Fields are emitted in sorted order so the generated SQL is deterministic.
func compileCond(cond Cond) ([]string, []any, error) {
	fields := make([]string, 0, len(cond))
	for f := range cond {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var frags []string
	var args []any
	for _, field := range fields {
		clause, ok := cond[field].(Clause)
		if !ok {
			// Bare literal: implicit equality.
			clause = Eq(cond[field])
		}
		switch clause.op {
		case "eq":
			frags = append(frags, field+" = ?")
			args = append(args, clause.value)
		case "neq":
			frags = append(frags, field+" != ?")
			args = append(args, clause.value)
		case "gt":
			frags = append(frags, field+" > ?")
			args = append(args, clause.value)
		case "gte":
			frags = append(frags, field+" >= ?")
			args = append(args, clause.value)
		case "lt":
			frags = append(frags, field+" < ?")
			args = append(args, clause.value)
		case "lte":
			frags = append(frags, field+" <= ?")
			args = append(args, clause.value)
		case "like":
			frags = append(frags, field+" LIKE ?")
			args = append(args, clause.value)
		case "in":
			values, _ := clause.value.([]any)
			if len(values) == 0 {
				frags = append(frags, "1 = 0")
				continue
			}
			frags = append(frags, field+" IN ("+placeholders(len(values))+")")
			args = append(args, values...)
		case "isNull":
			frags = append(frags, field+" IS NULL")
		case "notNull":
			frags = append(frags, field+" IS NOT NULL")
		default:
			return nil, nil, fmt.Errorf("%w: field %q, operator %q", ErrInvalidOperator, field, clause.op)
		}
	}
	return frags, args, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
