package desk

import "fmt"

// DefaultHistoryLimit is the number of operations shown when no limit is given.
const DefaultHistoryLimit = 20

// History returns the most recent recorded operations, newest first.
func History(db Database, limit int) ([]*Operation, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	ops, err := db.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
