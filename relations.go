package activerecord

import (
	"fmt"
	"sort"
	"strings"
)

// RelationKind classifies a relationship between two entity types.
type RelationKind string

const (
	// KindBelongsTo: this type's table carries the foreign key pointing at
	// the related type's primary key.
	KindBelongsTo RelationKind = "belongsTo"
	// KindHasOne: the related table carries the foreign key; at most one
	// related row per parent.
	KindHasOne RelationKind = "hasOne"
	// KindHasMany: the related table carries the foreign key; any number of
	// related rows per parent.
	KindHasMany RelationKind = "hasMany"
)

// Relationship describes one declared relationship. Descriptors are
// registered once per type at definition time and immutable afterwards.
// The related type is referenced by registry name, never by pointer, so
// bidirectional declarations cannot form an object cycle.
type Relationship struct {
	name       string
	kind       RelationKind
	foreignKey string
	related    string
}

func (rel *Relationship) Name() string       { return rel.name }
func (rel *Relationship) Kind() RelationKind { return rel.kind }
func (rel *Relationship) ForeignKey() string { return rel.foreignKey }
func (rel *Relationship) Related() string    { return rel.related }

// relatedType resolves the related entity type through the registry.
func (rel *Relationship) relatedType() (*Type, error) {
	t, ok := TypeOf(rel.related)
	if !ok {
		return nil, fmt.Errorf("%w: relationship %q targets %s", ErrUnknownType, rel.name, rel.related)
	}
	return t, nil
}

// RelationConfig overrides the conventional foreign key and related type
// name of a relationship declaration. Zero fields keep the convention.
type RelationConfig struct {
	ForeignKey string
	Type       string
}

func firstConfig(cfg []RelationConfig) RelationConfig {
	if len(cfg) > 0 {
		return cfg[0]
	}
	return RelationConfig{}
}

// HasMany declares a one-to-many relationship. The foreign key defaults to
// the parent type's conventional key ("Order" -> "order_id") on the related
// table; the related type name defaults to the singularized, camelized
// relationship name.
func (t *Type) HasMany(name string, cfg ...RelationConfig) *Type {
	return t.relate(name, KindHasMany, foreignKeyFor(t.name), firstConfig(cfg))
}

// HasOne declares a one-to-one relationship owned by this type. Defaults
// follow HasMany.
func (t *Type) HasOne(name string, cfg ...RelationConfig) *Type {
	return t.relate(name, KindHasOne, foreignKeyFor(t.name), firstConfig(cfg))
}

// BelongsTo declares the inverse side: this type's table carries the
// foreign key, defaulting to the relationship name ("author" -> "author_id").
func (t *Type) BelongsTo(name string, cfg ...RelationConfig) *Type {
	return t.relate(name, KindBelongsTo, foreignKeyFor(name), firstConfig(cfg))
}

func (t *Type) relate(name string, kind RelationKind, defaultFK string, cfg RelationConfig) *Type {
	rel := &Relationship{
		name:       name,
		kind:       kind,
		foreignKey: defaultFK,
		related:    typeNameFor(name),
	}
	if cfg.ForeignKey != "" {
		rel.foreignKey = cfg.ForeignKey
	}
	if cfg.Type != "" {
		rel.related = cfg.Type
	}
	t.rels[name] = rel
	return t
}

// Relationships returns the declared relationship names in sorted order.
func (t *Type) Relationships() []string {
	names := make([]string, 0, len(t.rels))
	for name := range t.rels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Relationship returns the descriptor registered under name, or an
// ErrInvalidRelationship listing the available names.
func (t *Type) Relationship(name string) (*Relationship, error) {
	rel, ok := t.rels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q on %s (available: %s)",
			ErrInvalidRelationship, name, t.name, strings.Join(t.Relationships(), ", "))
	}
	return rel, nil
}
