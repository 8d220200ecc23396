package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"

	"studydesk/internal/database/migrations"
	"studydesk/internal/database/sqlc"
	"studydesk/internal/desk"
)

// SQLiteDatabase implements desk.Database using SQLite.
//
// Writers are serialized by mu and each mutating operation runs in a single
// transaction, so no reader ever observes a half-shifted category.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
	clock   desk.Clock

	mu sync.Mutex
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
// A nil clock uses the real time.
func NewSQLiteDatabase(path string, clock desk.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	s := NewSQLiteDatabaseFromDB(db, clock)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock desk.Clock) *SQLiteDatabase {
	if clock == nil {
		clock = desk.RealClock{}
	}
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		clock:   clock,
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// The pool is pinned to one connection: PRAGMAs are per connection and every
// ":memory:" connection would otherwise be a separate empty database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// withTx runs fn inside a write transaction while holding the writer lock.
func (s *SQLiteDatabase) withTx(fn func(ctx context.Context, q *sqlc.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, s.queries.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Topic operations

func (s *SQLiteDatabase) InsertTopic(input desk.TopicInput) (*desk.Topic, error) {
	var created *desk.Topic
	err := s.withTx(func(ctx context.Context, q *sqlc.Queries) error {
		existing, err := findTopic(ctx, q, input.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %q", desk.ErrDuplicateName, input.Name)
		}

		n, err := q.CountTopicsInCategory(ctx, string(input.Category))
		if err != nil {
			return fmt.Errorf("counting category %s: %w", input.Category, err)
		}

		if err := insertTopicAt(ctx, q, input, n, s.clock.Now()); err != nil {
			return err
		}
		created = &desk.Topic{
			Name:     input.Name,
			Category: input.Category,
			Resource: input.Resource,
			Position: int(n),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *SQLiteDatabase) DeleteTopic(name string) (*desk.Topic, error) {
	var deleted *desk.Topic
	err := s.withTx(func(ctx context.Context, q *sqlc.Queries) error {
		row, err := q.GetTopicByName(ctx, name)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("topic %q: %w", name, desk.ErrNotFound)
			}
			return fmt.Errorf("finding topic: %w", err)
		}

		n, err := q.CountTopicsInCategory(ctx, row.Category)
		if err != nil {
			return fmt.Errorf("counting category %s: %w", row.Category, err)
		}

		if err := q.DeleteTopicByID(ctx, row.ID); err != nil {
			return fmt.Errorf("deleting topic: %w", err)
		}

		// Close the gap: everything after the removed slot moves up by one.
		if err := shiftPositions(ctx, q, row.Category, row.Position+1, n-1, -1); err != nil {
			return err
		}

		deleted = topicFromRow(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (s *SQLiteDatabase) ReorderTopic(name string, newPosition int) (*desk.Topic, error) {
	var moved *desk.Topic
	err := s.withTx(func(ctx context.Context, q *sqlc.Queries) error {
		row, err := q.GetTopicByName(ctx, name)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("topic %q: %w", name, desk.ErrNotFound)
			}
			return fmt.Errorf("finding topic: %w", err)
		}

		n, err := q.CountTopicsInCategory(ctx, row.Category)
		if err != nil {
			return fmt.Errorf("counting category %s: %w", row.Category, err)
		}

		target := int64(newPosition)
		if target < 0 || target >= n {
			return fmt.Errorf("%w: %d not in [0, %d) for category %s", desk.ErrInvalidPosition, newPosition, n, row.Category)
		}

		current := row.Position
		if target == current {
			moved = topicFromRow(row)
			return nil
		}

		// Park the moved topic where the restore step will land it on target.
		if err := q.UpdateTopicPosition(ctx, sqlc.UpdateTopicPositionParams{
			Position: parked(target),
			ID:       row.ID,
		}); err != nil {
			return fmt.Errorf("parking topic: %w", err)
		}

		if target > current {
			err = parkRange(ctx, q, row.Category, current+1, target, -1)
		} else {
			err = parkRange(ctx, q, row.Category, target, current-1, 1)
		}
		if err != nil {
			return err
		}
		if err := q.RestoreParkedPositions(ctx, row.Category); err != nil {
			return fmt.Errorf("restoring positions: %w", err)
		}

		row.Position = target
		moved = topicFromRow(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

func (s *SQLiteDatabase) ReplaceTopics(inputs []desk.TopicInput) error {
	return s.withTx(func(ctx context.Context, q *sqlc.Queries) error {
		if err := q.DeleteAllTopics(ctx); err != nil {
			return fmt.Errorf("clearing topics: %w", err)
		}

		next := make(map[desk.Category]int64)
		now := s.clock.Now()
		for _, input := range inputs {
			if err := insertTopicAt(ctx, q, input, next[input.Category], now); err != nil {
				return err
			}
			next[input.Category]++
		}
		return nil
	})
}

func (s *SQLiteDatabase) FindTopic(name string) (*desk.Topic, error) {
	row, err := findTopic(context.Background(), s.queries, name)
	if err != nil || row == nil {
		return nil, err
	}
	return topicFromRow(*row), nil
}

func (s *SQLiteDatabase) ListTopics() ([]*desk.Topic, error) {
	return s.queryTopics(topicsQuery())
}

func (s *SQLiteDatabase) ListTopicsInCategory(category desk.Category) ([]*desk.Topic, error) {
	return s.queryTopics(topicsQuery().Where(sq.Eq{"category": string(category)}))
}

func (s *SQLiteDatabase) CountTopicsByCategory() ([]desk.CategoryCount, error) {
	rows, err := s.queries.CountTopicsByCategory(context.Background())
	if err != nil {
		return nil, fmt.Errorf("counting topics by category: %w", err)
	}

	counts := make([]desk.CategoryCount, len(rows))
	for i, r := range rows {
		counts[i] = desk.CategoryCount{Category: desk.Category(r.Category), Count: int(r.Count)}
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return categoryRank(counts[i].Category) < categoryRank(counts[j].Category)
	})
	return counts, nil
}

func (s *SQLiteDatabase) queryTopics(b sq.SelectBuilder) ([]*desk.Topic, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building topic query: %w", err)
	}

	rows, err := s.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	defer rows.Close()

	var topics []*desk.Topic
	for rows.Next() {
		var r sqlc.Topic
		if err := rows.Scan(&r.ID, &r.Name, &r.Category, &r.Resource, &r.Position, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		topics = append(topics, topicFromRow(r))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	return topics, nil
}

// topicsQuery selects topics in display order: categories in their fixed
// order, then position.
func topicsQuery() sq.SelectBuilder {
	cs := desk.Categories()
	order := "CASE category"
	args := make([]any, 0, len(cs))
	for i, c := range cs {
		order += fmt.Sprintf(" WHEN ? THEN %d", i)
		args = append(args, string(c))
	}
	order += fmt.Sprintf(" ELSE %d END", len(cs))

	return sq.Select("id", "name", "category", "resource", "position", "created_at").
		From("topics").
		OrderByClause(order, args...).
		OrderBy("position")
}

func categoryRank(c desk.Category) int {
	for i, known := range desk.Categories() {
		if known == c {
			return i
		}
	}
	return len(desk.Categories())
}

func findTopic(ctx context.Context, q *sqlc.Queries, name string) (*sqlc.Topic, error) {
	row, err := q.GetTopicByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding topic by name: %w", err)
	}
	return &row, nil
}

func insertTopicAt(ctx context.Context, q *sqlc.Queries, input desk.TopicInput, position int64, now time.Time) error {
	_, err := q.InsertTopic(ctx, sqlc.InsertTopicParams{
		Name:      input.Name,
		Category:  string(input.Category),
		Resource:  input.Resource,
		Position:  position,
		CreatedAt: now,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", desk.ErrDuplicateName, input.Name)
		}
		return fmt.Errorf("inserting topic: %w", err)
	}
	return nil
}

// Position shifting keeps the UNIQUE (category, position) index valid after
// every statement. Rows to be shifted are first parked at distinct negative
// values encoding their destination, then flipped back in one update.

// parked maps a destination position to its negative parking value.
func parked(position int64) int64 { return -1 - position }

// parkRange parks positions [low, high] of category, each bound for position+delta.
func parkRange(ctx context.Context, q *sqlc.Queries, category string, low, high, delta int64) error {
	if low > high {
		return nil
	}
	err := q.ParkTopicPositions(ctx, sqlc.ParkTopicPositionsParams{
		Delta:    delta,
		Category: category,
		Low:      low,
		High:     high,
	})
	if err != nil {
		return fmt.Errorf("shifting positions %d..%d of %s: %w", low, high, category, err)
	}
	return nil
}

// shiftPositions moves positions [low, high] of category by delta.
func shiftPositions(ctx context.Context, q *sqlc.Queries, category string, low, high, delta int64) error {
	if low > high {
		return nil
	}
	if err := parkRange(ctx, q, category, low, high, delta); err != nil {
		return err
	}
	if err := q.RestoreParkedPositions(ctx, category); err != nil {
		return fmt.Errorf("restoring positions of %s: %w", category, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func topicFromRow(r sqlc.Topic) *desk.Topic {
	return &desk.Topic{
		Name:     r.Name,
		Category: desk.Category(r.Category),
		Resource: r.Resource,
		Position: int(r.Position),
	}
}

// Revision operations

func (s *SQLiteDatabase) UpsertRevision(rev *desk.Revision) error {
	return s.withTx(func(ctx context.Context, q *sqlc.Queries) error {
		err := q.UpsertRevision(ctx, sqlc.UpsertRevisionParams{
			TopicName: rev.TopicName,
			EntryDate: formatDate(rev.EntryDate),
			Revision1: formatDate(rev.Dates[0]),
			Revision2: formatDate(rev.Dates[1]),
			Revision3: formatDate(rev.Dates[2]),
			Revision4: formatDate(rev.Dates[3]),
			Revision5: formatDate(rev.Dates[4]),
		})
		if err != nil {
			return fmt.Errorf("upserting revision: %w", err)
		}
		return nil
	})
}

func (s *SQLiteDatabase) DeleteRevision(topicName string) error {
	return s.withTx(func(ctx context.Context, q *sqlc.Queries) error {
		n, err := q.DeleteRevisionByTopic(ctx, topicName)
		if err != nil {
			return fmt.Errorf("deleting revision: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("revision %q: %w", topicName, desk.ErrNotFound)
		}
		return nil
	})
}

func (s *SQLiteDatabase) ListRevisions() ([]*desk.Revision, error) {
	rows, err := s.queries.ListRevisions(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing revisions: %w", err)
	}
	return revisionsFromRows(rows)
}

func (s *SQLiteDatabase) FindRevisionsOn(date time.Time) ([]*desk.Revision, error) {
	day := formatDate(date)
	match := sq.Or{}
	for i := 1; i <= desk.RevisionSlots; i++ {
		match = append(match, sq.Eq{fmt.Sprintf("revision_%d", i): day})
	}

	query, args, err := sq.Select("id", "topic_name", "entry_date",
		"revision_1", "revision_2", "revision_3", "revision_4", "revision_5").
		From("revisions").
		Where(match).
		OrderBy("topic_name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building revision query: %w", err)
	}

	rows, err := s.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding revisions: %w", err)
	}
	defer rows.Close()

	var found []sqlc.Revision
	for rows.Next() {
		var r sqlc.Revision
		if err := rows.Scan(&r.ID, &r.TopicName, &r.EntryDate,
			&r.Revision1, &r.Revision2, &r.Revision3, &r.Revision4, &r.Revision5); err != nil {
			return nil, fmt.Errorf("scanning revision: %w", err)
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("finding revisions: %w", err)
	}
	return revisionsFromRows(found)
}

func revisionsFromRows(rows []sqlc.Revision) ([]*desk.Revision, error) {
	revs := make([]*desk.Revision, 0, len(rows))
	for _, r := range rows {
		rev, err := revisionFromRow(r)
		if err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	return revs, nil
}

func revisionFromRow(r sqlc.Revision) (*desk.Revision, error) {
	entry, err := desk.ParseDate(r.EntryDate)
	if err != nil {
		return nil, fmt.Errorf("revision %q entry date: %w", r.TopicName, err)
	}
	rev := &desk.Revision{TopicName: r.TopicName, EntryDate: entry}
	for i, raw := range []string{r.Revision1, r.Revision2, r.Revision3, r.Revision4, r.Revision5} {
		d, err := desk.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("revision %q slot %d: %w", r.TopicName, i+1, err)
		}
		rev.Dates[i] = d
	}
	return rev, nil
}

func formatDate(t time.Time) string {
	return t.Format(desk.DateLayout)
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(operation, parameters string) (*desk.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	startedAt := s.clock.Now()
	id, err := s.queries.InsertOperation(context.Background(), sqlc.InsertOperationParams{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  startedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return &desk.Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  startedAt,
		Status:     "running",
	}, nil
}

func (s *SQLiteDatabase) FinishOperation(id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.queries.UpdateOperationFinished(context.Background(), sqlc.UpdateOperationFinishedParams{
		FinishedAt: sql.NullTime{Time: s.clock.Now(), Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(limit int) ([]*desk.Operation, error) {
	ops, err := s.queries.GetOperations(context.Background(), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}

	result := make([]*desk.Operation, len(ops))
	for i := range ops {
		result[i] = operationFromRow(ops[i])
	}
	return result, nil
}

func (s *SQLiteDatabase) MaxOperationID() (int64, error) {
	id, err := s.queries.GetMaxOperationID(context.Background())
	if err != nil {
		return 0, fmt.Errorf("getting max operation ID: %w", err)
	}
	return id, nil
}

func operationFromRow(r sqlc.Operation) *desk.Operation {
	op := &desk.Operation{
		ID:         r.ID,
		Operation:  r.Operation,
		Parameters: r.Parameters,
		StartedAt:  r.StartedAt,
		Status:     r.Status,
	}
	if r.FinishedAt.Valid {
		t := r.FinishedAt.Time
		op.FinishedAt = &t
	}
	return op
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// MigrateUp applies any pending migrations.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// MigrationStatus reports the applied and latest schema versions.
func (s *SQLiteDatabase) MigrationStatus() (migrations.Status, error) {
	return migrations.GetStatus(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements desk.Database interface
var _ desk.Database = (*SQLiteDatabase)(nil)
