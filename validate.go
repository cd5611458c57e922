package activerecord

import "fmt"

// Validator checks a record before it is written. An empty error map means
// the record is valid.
type Validator interface {
	Validate(r *Record) map[string][]string
}

// RuleFunc checks one field value and returns an error message, or "" when
// the value passes.
type RuleFunc func(value any) string

// Rules is the stock Validator: an ordered set of per-field rule functions.
type Rules struct {
	fields []string
	rules  map[string][]RuleFunc
}

// NewRules creates an empty rule set.
func NewRules() *Rules {
	return &Rules{rules: map[string][]RuleFunc{}}
}

// Add registers a rule for a field. Multiple rules per field all run; every
// failing rule contributes a message.
func (v *Rules) Add(field string, rule RuleFunc) *Rules {
	if _, ok := v.rules[field]; !ok {
		v.fields = append(v.fields, field)
	}
	v.rules[field] = append(v.rules[field], rule)
	return v
}

// Validate implements Validator.
func (v *Rules) Validate(r *Record) map[string][]string {
	errs := map[string][]string{}
	for _, field := range v.fields {
		for _, rule := range v.rules[field] {
			if msg := rule(r.Get(field)); msg != "" {
				errs[field] = append(errs[field], msg)
			}
		}
	}
	return errs
}

// Required fails on nil and empty-string values.
func Required() RuleFunc {
	return func(value any) string {
		if value == nil || value == "" {
			return "is required"
		}
		return ""
	}
}

// MaxLen fails on string values longer than n.
func MaxLen(n int) RuleFunc {
	return func(value any) string {
		if s, ok := value.(string); ok && len(s) > n {
			return fmt.Sprintf("must be at most %d characters", n)
		}
		return ""
	}
}
