package activerecord

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Record is one row as a mutable, dirty-tracked object. A record is used by
// one logical operation at a time; it is not safe for concurrent mutation.
type Record struct {
	typ        *Type
	attributes Row
	original   Row
	persisted  bool
	errs       map[string][]string

	// loaded caches related data by relationship name. Entries are purely
	// additive: once populated, a relationship is never re-queried within
	// this record's lifetime.
	loaded map[string]any
}

// Type returns the record's entity type.
func (r *Record) Type() *Type { return r.typ }

// Persisted reports whether the record is backed by a database row.
func (r *Record) Persisted() bool { return r.persisted }

// Get reads an attribute. This is the single attribute-access point; there
// are no per-field accessors.
func (r *Record) Get(field string) any {
	return r.attributes[field]
}

// Set writes an attribute. Dirtiness is derived by comparing against the
// baseline snapshot, so writing the original value back cleans the field.
func (r *Record) Set(field string, value any) {
	r.attributes[field] = value
}

// PrimaryKey returns the current primary-key value, nil when unassigned.
func (r *Record) PrimaryKey() any {
	return r.attributes[r.typ.pk]
}

// Dirty returns the attributes whose value differs from the baseline
// snapshot. An empty map means no pending changes.
func (r *Record) Dirty() Row {
	dirty := Row{}
	for field, value := range r.attributes {
		orig, had := r.original[field]
		if !had || !reflect.DeepEqual(orig, value) {
			dirty[field] = value
		}
	}
	return dirty
}

// Errors returns the validation error map from the last IsValid call.
func (r *Record) Errors() map[string][]string {
	return r.errs
}

// IsValid runs the type's validator and stores the resulting error map.
// It never touches persistence state.
func (r *Record) IsValid() bool {
	if r.typ.validator == nil {
		r.errs = map[string][]string{}
		return true
	}
	r.errs = r.typ.validator.Validate(r)
	return len(r.errs) == 0
}

func (r *Record) runCallbacks(point Point) bool {
	if r.typ.callbacks == nil {
		return true
	}
	return r.typ.callbacks.Run(r, point)
}

// Save validates and writes the record: an INSERT when it has never been
// persisted, otherwise an UPDATE restricted to the dirty columns. It
// returns (false, nil) when validation fails or a before-callback aborts;
// database failures are returned as ErrSaveFailed. On success the baseline
// snapshot is reset, emptying the dirty set.
func (r *Record) Save() (bool, error) {
	if !r.IsValid() {
		return false, nil
	}
	if !r.persisted {
		return r.insert()
	}
	return r.update()
}

func (r *Record) insert() (bool, error) {
	if !r.runCallbacks(BeforeCreate) {
		return false, nil
	}
	if !r.runCallbacks(BeforeSave) {
		return false, nil
	}
	if err := r.touchTimestamps(); err != nil {
		return false, err
	}

	fields := sortedFields(r.attributes)
	args := make([]any, 0, len(fields))
	for _, field := range fields {
		args = append(args, r.attributes[field])
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.typ.table, strings.Join(fields, ", "), placeholders(len(fields)))

	exec, err := r.typ.executor()
	if err != nil {
		return false, err
	}
	res, err := exec.Execute(query, args)
	if err != nil {
		return false, fmt.Errorf("%w: insert into %s: %w", ErrSaveFailed, r.typ.table, err)
	}
	if res.LastInsertID != 0 {
		r.attributes[r.typ.pk] = res.LastInsertID
	}
	r.persisted = true

	r.runCallbacks(AfterSave)
	r.runCallbacks(AfterCreate)
	r.original = r.attributes.clone()
	return true, nil
}

func (r *Record) update() (bool, error) {
	if !r.runCallbacks(BeforeSave) {
		return false, nil
	}
	dirty := r.Dirty()
	if len(dirty) > 0 {
		if _, hasUpdated, err := r.typ.timestamps(); err != nil {
			return false, err
		} else if hasUpdated {
			r.attributes["updated_at"] = now()
			dirty["updated_at"] = r.attributes["updated_at"]
		}

		// Only the dirty columns are written; unchanged ones never are.
		fields := sortedFields(dirty)
		args := make([]any, 0, len(fields)+1)
		var set string
		for i, field := range fields {
			if i > 0 {
				set += ", "
			}
			set += field + " = ?"
			args = append(args, dirty[field])
		}
		args = append(args, r.original[r.typ.pk])
		query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", r.typ.table, set, r.typ.pk)

		exec, err := r.typ.executor()
		if err != nil {
			return false, err
		}
		if _, err := exec.Execute(query, args); err != nil {
			return false, fmt.Errorf("%w: update %s: %w", ErrSaveFailed, r.typ.table, err)
		}
	}
	r.runCallbacks(AfterSave)
	r.original = r.attributes.clone()
	return true, nil
}

// Update merges changes through Set (tracking dirtiness per field) and
// delegates to Save.
func (r *Record) Update(changes Row) (bool, error) {
	for field, value := range changes {
		r.Set(field, value)
	}
	return r.Save()
}

// Delete removes the backing row. A false beforeDelete aborts with
// (false, nil); database failures surface as ErrDeleteFailed. When a row was
// affected the in-memory record is marked unpersisted and afterDelete runs;
// a no-op delete leaves the record untouched and fires no after-hooks.
func (r *Record) Delete() (bool, error) {
	if !r.runCallbacks(BeforeDelete) {
		return false, nil
	}
	exec, err := r.typ.executor()
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", r.typ.table, r.typ.pk)
	res, err := exec.Execute(query, []any{r.PrimaryKey()})
	if err != nil {
		return false, fmt.Errorf("%w: delete from %s: %w", ErrDeleteFailed, r.typ.table, err)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	r.persisted = false
	r.runCallbacks(AfterDelete)
	return true, nil
}

// Reload re-fetches the record by primary key, replacing the attributes and
// resetting the baseline; in-memory changes are discarded. Returns
// ErrRecordNotFound when the row no longer exists.
func (r *Record) Reload() error {
	exec, err := r.typ.executor()
	if err != nil {
		return err
	}
	query, args, err := NewBuilder().
		Where(Cond{r.typ.pk: r.PrimaryKey()}).
		Limit(1).
		Compile(r.typ.table)
	if err != nil {
		return err
	}
	res, err := exec.Execute(query, args)
	if err != nil {
		return err
	}
	if len(res.Rows) == 0 {
		return fmt.Errorf("%w: %s %v", ErrRecordNotFound, r.typ.name, r.PrimaryKey())
	}
	r.attributes = res.Rows[0].clone()
	r.original = res.Rows[0].clone()
	r.persisted = true
	return nil
}

// touchTimestamps fills created_at/updated_at on insert when the table has
// those columns.
func (r *Record) touchTimestamps() error {
	hasCreated, hasUpdated, err := r.typ.timestamps()
	if err != nil {
		return err
	}
	ts := now()
	if hasCreated {
		r.attributes["created_at"] = ts
	}
	if hasUpdated {
		r.attributes["updated_at"] = ts
	}
	return nil
}

// now is stubbed in tests for deterministic timestamps.
var now = func() time.Time { return time.Now().UTC() }

func sortedFields(row Row) []string {
	fields := make([]string, 0, len(row))
	for field := range row {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
