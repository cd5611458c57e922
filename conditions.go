package activerecord

// Cond is one condition expression: a mapping from column name to either a
// literal value (implies equality) or an operator Clause. All entries within
// a Cond are AND-ed, as are successive Where() calls. There is no OR or
// grouping support.
type Cond map[string]any

// Clause pairs an operator with its operand.
// It is a sealed value type constructed via the helper functions below.
type Clause struct {
	op    string
	value any
}

func (c Clause) Operator() string { return c.op }
func (c Clause) Value() any       { return c.value }

// Eq creates an equality clause. Bare literals in a Cond compile the same
// way; the explicit form exists for symmetry.
func Eq(value any) Clause {
	return Clause{op: "eq", value: value}
}

// Neq creates an inequality clause.
func Neq(value any) Clause {
	return Clause{op: "neq", value: value}
}

// Gt creates a greater-than clause.
func Gt(value any) Clause {
	return Clause{op: "gt", value: value}
}

// Gte creates a greater-than-or-equal clause.
func Gte(value any) Clause {
	return Clause{op: "gte", value: value}
}

// Lt creates a less-than clause.
func Lt(value any) Clause {
	return Clause{op: "lt", value: value}
}

// Lte creates a less-than-or-equal clause.
func Lte(value any) Clause {
	return Clause{op: "lte", value: value}
}

// Like creates a pattern-match clause.
func Like(value any) Clause {
	return Clause{op: "like", value: value}
}

// In creates a set-membership clause. An empty value set compiles to a
// constant-false predicate rather than invalid SQL.
func In(values ...any) Clause {
	return Clause{op: "in", value: values}
}

// IsNull creates an IS NULL clause. It binds no value.
func IsNull() Clause {
	return Clause{op: "isNull"}
}

// NotNull creates an IS NOT NULL clause. It binds no value.
func NotNull() Clause {
	return Clause{op: "notNull"}
}
