package effectchain

import "errors"

// Errors returned by catalog, model, builder and wiring operations.
var (
	// ErrNotFound is returned for effect ids missing from the catalog.
	ErrNotFound = errors.New("effectchain: effect not found")
	// ErrInvalidParameter is returned for unknown effects or undeclared
	// parameters.
	ErrInvalidParameter = errors.New("effectchain: invalid parameter")
	// ErrOutOfRange is returned for values outside a parameter's range.
	ErrOutOfRange = errors.New("effectchain: value out of range")
	// ErrInvalidOrder is returned when a new order is not a permutation of
	// the current one.
	ErrInvalidOrder = errors.New("effectchain: invalid order")
	// ErrInternalInconsistency signals a desync between catalog, model and
	// built units.
	ErrInternalInconsistency = errors.New("effectchain: internal inconsistency")
	// ErrInvalidDescriptor is returned by NewCatalog for malformed entries.
	ErrInvalidDescriptor = errors.New("effectchain: invalid descriptor")
)
