// Package activerecord is a small active-record persistence layer on top of
// database/sql: a chainable query builder that compiles condition maps into
// parameterized SQL, dirty-tracked record instances with validation and
// lifecycle callbacks, and an eager loader that keeps the query count per
// relationship constant regardless of result-set size.
//
// Entity types are registered once at startup via Define and looked up by
// name; records are plain attribute maps behind Get/Set, so no code
// generation is involved.
package activerecord
