package activerecord

import (
	"fmt"
	"strings"
)

type strategy int

const (
	strategyAuto strategy = iota
	strategyJoin
	strategySeparate
)

// includeSpec is one eager-load request: a dot-separated relationship path
// and the requested strategy for its first segment.
type includeSpec struct {
	path  string
	strat strategy
}

// selectStrategy picks the loading technique for a relationship kind.
// belongsTo and hasOne join: the related row cannot multiply the parent row
// count. hasMany uses a separate IN query: a join would duplicate each
// parent once per child.
func selectStrategy(kind RelationKind) strategy {
	if kind == KindHasMany {
		return strategySeparate
	}
	return strategyJoin
}

// loader resolves the eager-load requests of one query. The total number of
// additional queries is proportional to the number of distinct requested
// relationship segments, never to the number of result rows.
type loader struct {
	typ      *Type
	includes []includeSpec
}

func newLoader(typ *Type, includes []includeSpec) *loader {
	return &loader{typ: typ, includes: includes}
}

// loadPlan is a validated include: the first segment's descriptor, its
// resolved strategy, and the remainders of every path sharing that segment.
type loadPlan struct {
	rel     *Relationship
	related *Type
	strat   strategy
	forced  bool
	rests   []string
}

// plan validates every first-level relationship name before any SQL runs
// and resolves the per-segment strategy. Paths sharing a first segment
// merge into one plan, so the shared segment is queried once however many
// paths traverse it. An explicitly requested strategy wins over an
// automatically selected one.
func (l *loader) plan() ([]loadPlan, error) {
	plans := make([]loadPlan, 0, len(l.includes))
	index := map[string]int{}
	for _, inc := range l.includes {
		head, rest, _ := strings.Cut(inc.path, ".")
		if i, ok := index[head]; ok {
			p := &plans[i]
			if inc.strat != strategyAuto && !p.forced {
				p.strat = inc.strat
				p.forced = true
			}
			if rest != "" {
				p.rests = append(p.rests, rest)
			}
			continue
		}
		rel, err := l.typ.Relationship(head)
		if err != nil {
			return nil, err
		}
		related, err := rel.relatedType()
		if err != nil {
			return nil, err
		}
		p := loadPlan{rel: rel, related: related, strat: inc.strat, forced: inc.strat != strategyAuto}
		if !p.forced {
			p.strat = selectStrategy(rel.kind)
		}
		if rest != "" {
			p.rests = append(p.rests, rest)
		}
		index[head] = len(plans)
		plans = append(plans, p)
	}
	return plans, nil
}

// run executes the primary query and resolves all includes.
func (l *loader) run(builder *Builder) ([]*Record, error) {
	plans, err := l.plan()
	if err != nil {
		return nil, err
	}

	var joins []loadPlan
	for _, p := range plans {
		if p.strat == strategyJoin {
			if err := l.attachJoin(builder, p); err != nil {
				return nil, err
			}
			joins = append(joins, p)
		}
	}

	exec, err := l.typ.executor()
	if err != nil {
		return nil, err
	}
	query, args, err := builder.Compile(l.typ.table)
	if err != nil {
		return nil, err
	}
	res, err := exec.Execute(query, args)
	if err != nil {
		return nil, err
	}

	records, err := l.hydrateJoined(res.Rows, joins)
	if err != nil {
		return nil, err
	}

	for _, p := range plans {
		if p.strat == strategySeparate {
			if _, err := loadSeparate(l.typ, records, p.rel, p.related); err != nil {
				return nil, err
			}
		}
	}

	// Nested segments recurse over the flattened child set, so each
	// reachable segment costs one query regardless of row counts.
	for _, p := range plans {
		if len(p.rests) == 0 {
			continue
		}
		children := flattenLoaded(records, p.rel)
		if err := loadNested(p.related, children, p.rests); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// attachJoin rewrites the in-flight query with a LEFT OUTER JOIN and a
// collision-avoiding prefixed select list for the related columns.
func (l *loader) attachJoin(builder *Builder, p loadPlan) error {
	cols, err := p.related.Columns()
	if err != nil {
		return err
	}
	if len(builder.columns) == 0 {
		builder.Select(l.typ.table + ".*")
	}
	prefix := p.related.table + "__"
	for _, col := range cols {
		builder.Select(fmt.Sprintf("%s.%s AS %s%s", p.related.table, col, prefix, col))
	}
	var on string
	if p.rel.kind == KindBelongsTo {
		on = fmt.Sprintf("%s.%s = %s.%s", p.related.table, p.related.pk, l.typ.table, p.rel.foreignKey)
	} else {
		on = fmt.Sprintf("%s.%s = %s.%s", p.related.table, p.rel.foreignKey, l.typ.table, l.typ.pk)
	}
	builder.Join("LEFT OUTER", p.related.table, on)
	return nil
}

// hydrateJoined demultiplexes prefixed related columns back into nested
// records. Parent rows duplicated by a forced hasMany join collapse by
// primary key, each duplicate contributing one child.
func (l *loader) hydrateJoined(rows []Row, joins []loadPlan) ([]*Record, error) {
	if len(joins) == 0 {
		records := make([]*Record, 0, len(rows))
		for _, row := range rows {
			records = append(records, l.typ.hydrate(row))
		}
		return records, nil
	}

	var records []*Record
	seen := map[string]*Record{}
	for _, row := range rows {
		parentRow := Row{}
		childRows := make(map[string]Row, len(joins))
		for _, p := range joins {
			childRows[p.rel.name] = Row{}
		}
	columns:
		for col, value := range row {
			for _, p := range joins {
				prefix := p.related.table + "__"
				if strings.HasPrefix(col, prefix) {
					childRows[p.rel.name][strings.TrimPrefix(col, prefix)] = value
					continue columns
				}
			}
			parentRow[col] = value
		}

		key := keyString(parentRow[l.typ.pk])
		parent, dup := seen[key]
		if !dup {
			parent = l.typ.hydrate(parentRow)
			seen[key] = parent
			records = append(records, parent)
			for _, p := range joins {
				if p.rel.kind == KindHasMany {
					parent.setLoaded(p.rel.name, []*Record{})
				} else {
					parent.setLoaded(p.rel.name, (*Record)(nil))
				}
			}
		}
		for _, p := range joins {
			childRow := childRows[p.rel.name]
			if childRow[p.related.pk] == nil {
				continue
			}
			child := p.related.hydrate(childRow)
			if p.rel.kind == KindHasMany {
				group, _ := parent.loaded[p.rel.name].([]*Record)
				parent.loaded[p.rel.name] = append(group, child)
			} else if prev, _ := parent.loaded[p.rel.name].(*Record); prev == nil {
				parent.loaded[p.rel.name] = child
			}
		}
	}
	return records, nil
}

// loadSeparate executes the batched IN query for one relationship: collect
// the distinct parent-side key values, fetch all related rows at once, and
// attach the matching group (possibly empty) to each parent. Exactly one
// query runs however many parents there are; zero when no parent carries a
// key. The loaded children are returned for nested recursion.
func loadSeparate(typ *Type, parents []*Record, rel *Relationship, related *Type) ([]*Record, error) {
	parentKey := typ.pk
	childKey := rel.foreignKey
	if rel.kind == KindBelongsTo {
		parentKey = rel.foreignKey
		childKey = related.pk
	}

	var keys []any
	distinct := map[string]bool{}
	for _, parent := range parents {
		v := parent.Get(parentKey)
		if v == nil {
			continue
		}
		if k := keyString(v); !distinct[k] {
			distinct[k] = true
			keys = append(keys, v)
		}
	}

	var children []*Record
	groups := map[string][]*Record{}
	if len(keys) > 0 {
		exec, err := related.executor()
		if err != nil {
			return nil, err
		}
		query, args, err := NewBuilder().
			Where(Cond{childKey: In(keys...)}).
			Compile(related.table)
		if err != nil {
			return nil, err
		}
		res, err := exec.Execute(query, args)
		if err != nil {
			return nil, err
		}
		for _, row := range res.Rows {
			child := related.hydrate(row)
			children = append(children, child)
			k := keyString(child.Get(childKey))
			groups[k] = append(groups[k], child)
		}
	}

	for _, parent := range parents {
		group := groups[keyString(parent.Get(parentKey))]
		switch rel.kind {
		case KindHasMany:
			if group == nil {
				group = []*Record{}
			}
			parent.setLoaded(rel.name, group)
		default:
			if len(group) > 0 {
				parent.setLoaded(rel.name, group[0])
			} else {
				parent.setLoaded(rel.name, (*Record)(nil))
			}
		}
	}
	return children, nil
}

// loadNested resolves the remaining segments of the dot-paths against an
// already-materialized parent set. Parents here cannot receive a JOIN, so
// every segment loads via the batched IN query. Paths sharing a head
// segment merge, the same way plan() merges first segments.
func loadNested(typ *Type, parents []*Record, paths []string) error {
	if len(parents) == 0 || len(paths) == 0 {
		return nil
	}
	var heads []string
	rests := map[string][]string{}
	for _, path := range paths {
		head, rest, _ := strings.Cut(path, ".")
		if _, ok := rests[head]; !ok {
			heads = append(heads, head)
			rests[head] = nil
		}
		if rest != "" {
			rests[head] = append(rests[head], rest)
		}
	}
	for _, head := range heads {
		rel, err := typ.Relationship(head)
		if err != nil {
			return err
		}
		related, err := rel.relatedType()
		if err != nil {
			return err
		}
		children, err := loadSeparate(typ, parents, rel, related)
		if err != nil {
			return err
		}
		if err := loadNested(related, children, rests[head]); err != nil {
			return err
		}
	}
	return nil
}

// flattenLoaded combines all non-nil loaded children of one relationship
// across parents into a single set.
func flattenLoaded(parents []*Record, rel *Relationship) []*Record {
	var out []*Record
	for _, parent := range parents {
		switch v := parent.loaded[rel.name].(type) {
		case []*Record:
			out = append(out, v...)
		case *Record:
			if v != nil {
				out = append(out, v)
			}
		}
	}
	return out
}

func keyString(v any) string {
	return fmt.Sprint(v)
}
