package db

// Op constants name database operations for error context.
const (
	OpFind        = "find"
	OpCount       = "count"
	OpAggregate   = "aggregate"
	OpExplain     = "explain"
	OpInsertMany  = "insertMany"
	OpDrop        = "drop"
	OpCreateIndex = "createIndexes"
	OpPing        = "ping"
)

// Error wraps an underlying driver error with the operation name and
// target collection for diagnostics.
type Error struct {
	Op         string
	Collection string
	Err        error
}

func (e *Error) Error() string {
	if e.Collection == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Collection + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap attaches operation context to a driver error; nil passes through.
func Wrap(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Collection: collection, Err: err}
}
