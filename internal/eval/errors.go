package eval

import "errors"

var (
	// ErrCycleAtRuntime is returned when the traversal revisits a node it
	// is still resolving. The graph layer rejects cycles at insertion time,
	// so hitting this means the snapshot is corrupted; the evaluation
	// aborts and must not be retried.
	ErrCycleAtRuntime = errors.New("cycle encountered during evaluation")

	// ErrInvalidOperatorArity is returned when an operator is applied to a
	// child count it is not defined for (ratio requires exactly two).
	ErrInvalidOperatorArity = errors.New("operator not defined for this number of children")
)
