package desk

import "time"

// TopicStore persists topics and keeps each category's positions dense.
// Every mutating method is atomic: a rejected call leaves the store unchanged.
type TopicStore interface {
	// InsertTopic appends a topic at the end of its category.
	// Returns ErrDuplicateName if the name is taken.
	InsertTopic(input TopicInput) (*Topic, error)

	// DeleteTopic removes a topic and closes the gap it leaves in its category.
	// Returns ErrNotFound if no topic has that name.
	DeleteTopic(name string) (*Topic, error)

	// ReorderTopic moves a topic to newPosition within its category, shifting
	// the entries in between by one. Returns ErrNotFound or ErrInvalidPosition.
	ReorderTopic(name string, newPosition int) (*Topic, error)

	// ReplaceTopics clears every topic and inserts inputs in order, assigning
	// positions from a running per-category counter. Inputs must be validated
	// and have distinct names.
	ReplaceTopics(inputs []TopicInput) error

	// FindTopic returns the named topic, or nil if it does not exist.
	FindTopic(name string) (*Topic, error)

	// ListTopics returns every topic ordered by category, then position.
	ListTopics() ([]*Topic, error)

	// ListTopicsInCategory returns the topics of one category ordered by position.
	ListTopicsInCategory(category Category) ([]*Topic, error)

	// CountTopicsByCategory returns how many topics each non-empty category holds.
	CountTopicsByCategory() ([]CategoryCount, error)
}

// RevisionStore persists revision schedules keyed by topic name.
type RevisionStore interface {
	// UpsertRevision stores rev, replacing any schedule with the same topic name.
	UpsertRevision(rev *Revision) error

	// DeleteRevision removes the schedule for topicName.
	// Returns ErrNotFound if there is none.
	DeleteRevision(topicName string) error

	// ListRevisions returns every schedule ordered by entry date, then name.
	ListRevisions() ([]*Revision, error)

	// FindRevisionsOn returns the schedules having at least one revision on date.
	FindRevisionsOn(date time.Time) ([]*Revision, error)
}

// Operation is one recorded invocation of a mutating command.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
}

// Database is the full record store: both tables, the operation log and the
// lifecycle of the underlying connection.
type Database interface {
	TopicStore
	RevisionStore

	// CreateOperation records the start of a mutating operation.
	CreateOperation(operation, parameters string) (*Operation, error)

	// FinishOperation marks an operation as finished with the given status.
	FinishOperation(id int64, status string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*Operation, error)

	// MaxOperationID returns the highest recorded operation ID, or 0.
	MaxOperationID() (int64, error)

	// CheckMigrations verifies the schema is at the latest version.
	CheckMigrations() error

	// BackupTo writes a consistent copy of the database to destPath.
	BackupTo(destPath string) error

	// Close closes the database connection.
	Close() error
}
