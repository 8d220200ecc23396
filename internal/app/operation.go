package app

// Operation status values stored in the operations table.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks a command that may mutate the database.
// Operations are created in memory with ID=0. Only DB-mutating commands
// persist them, which gives them an auto-increment ID from the database.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
}

// NewOperation creates a new in-memory operation.
func NewOperation(operation, parameters string) *Operation {
	return &Operation{
		Operation:  operation,
		Parameters: parameters,
		Status:     StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Observe records the outcome of the work done under this operation.
// Once failed, an operation stays failed.
func (op *Operation) Observe(err error) {
	if err != nil {
		op.Status = StatusError
	}
}
