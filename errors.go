package activerecord

import "errors"

// ErrInvalidOperator is returned when a condition clause carries an operator
// the compiler does not recognize.
var ErrInvalidOperator = errors.New("invalid condition operator")

// ErrRecordNotFound is returned by Reload() when the backing row no longer
// exists.
var ErrRecordNotFound = errors.New("record not found")

// ErrInvalidRelationship is returned when a relationship name is not
// registered on the entity type. It is raised before any SQL executes.
var ErrInvalidRelationship = errors.New("invalid relationship")

// ErrSaveFailed wraps a database-level failure during Save().
var ErrSaveFailed = errors.New("save failed")

// ErrDeleteFailed wraps a database-level failure during Delete().
var ErrDeleteFailed = errors.New("delete failed")

// ErrUnknownDatasource is returned when no executor is registered under the
// requested datasource name.
var ErrUnknownDatasource = errors.New("unknown datasource")

// ErrUnknownType is returned when a registry lookup names an entity type
// that was never defined.
var ErrUnknownType = errors.New("unknown entity type")
