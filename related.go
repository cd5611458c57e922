package activerecord

// Loaded returns the cached data for a relationship name and whether it has
// been loaded. hasMany relationships cache []*Record; hasOne and belongsTo
// cache *Record (possibly nil).
func (r *Record) Loaded(name string) (any, bool) {
	v, ok := r.loaded[name]
	return v, ok
}

// setLoaded populates the relationship cache. The cache is purely additive:
// a populated entry is never replaced within the record's lifetime.
func (r *Record) setLoaded(name string, v any) {
	if _, ok := r.loaded[name]; ok {
		return
	}
	r.loaded[name] = v
}

// Related returns the related data for a declared relationship, loading it
// lazily when it was not eager-loaded. The lazy path logs an advisory
// warning, since one query per record is the N+1 pattern eager loading
// exists to avoid, but never fails because of it.
func (r *Record) Related(name string) (any, error) {
	rel, err := r.typ.Relationship(name)
	if err != nil {
		return nil, err
	}
	if v, ok := r.loaded[name]; ok {
		return v, nil
	}
	r.typ.log.Warn("relationship accessed without eager load; loading lazily",
		"type", r.typ.name, "relationship", name)
	related, err := rel.relatedType()
	if err != nil {
		return nil, err
	}
	if _, err := loadSeparate(r.typ, []*Record{r}, rel, related); err != nil {
		return nil, err
	}
	return r.loaded[name], nil
}

// RelatedMany is Related for hasMany relationships, typed to the slice the
// cache holds.
func (r *Record) RelatedMany(name string) ([]*Record, error) {
	v, err := r.Related(name)
	if err != nil {
		return nil, err
	}
	group, _ := v.([]*Record)
	return group, nil
}

// RelatedOne is Related for hasOne and belongsTo relationships.
func (r *Record) RelatedOne(name string) (*Record, error) {
	v, err := r.Related(name)
	if err != nil {
		return nil, err
	}
	one, _ := v.(*Record)
	return one, nil
}
