package connmgr

import "github.com/bganilkumar/ConnectionManager/types"

// Type aliases for convenience - re-export from types package.
type (
	Statement        = types.Statement
	StatementKind    = types.StatementKind
	Consistency      = types.Consistency
	BatchType        = types.BatchType
	Logger           = types.Logger
	MetricsCollector = types.MetricsCollector
)

// Re-export statement kind constants for convenience.
const (
	KindInsert = types.KindInsert
	KindUpdate = types.KindUpdate
	KindDelete = types.KindDelete
	KindSelect = types.KindSelect
	KindRaw    = types.KindRaw
)

// Re-export consistency level constants for convenience.
const (
	Any         = types.Any
	One         = types.One
	Two         = types.Two
	Three       = types.Three
	Quorum      = types.Quorum
	All         = types.All
	LocalQuorum = types.LocalQuorum
	EachQuorum  = types.EachQuorum
	Serial      = types.Serial
	LocalSerial = types.LocalSerial
	LocalOne    = types.LocalOne
)

// Re-export batch type constants for convenience.
const (
	LoggedBatch   = types.LoggedBatch
	UnloggedBatch = types.UnloggedBatch
	CounterBatch  = types.CounterBatch
)
