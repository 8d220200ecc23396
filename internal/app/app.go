package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"studydesk/internal/config"
	"studydesk/internal/database"
	"studydesk/internal/desk"
	"studydesk/internal/encryption"
	"studydesk/internal/tabular"
	"studydesk/internal/vault"
	"studydesk/internal/web"
)

// Options tune how a StudyApp is constructed.
type Options struct {
	// Operation names the command being run (e.g. "topic add").
	Operation string
	// Parameters is a free-form summary of the command arguments.
	Parameters string
	// Verbose enables debug logging.
	Verbose bool
	// Clock overrides the real clock.
	Clock desk.Clock
}

// StudyApp is the application layer between the CLI and the desk services.
// It constructs all dependencies from config, records mutating commands in
// the operation log and uploads a snapshot of the database on Close.
type StudyApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	snapshots *desk.SnapshotService
	topics    *desk.TopicService
	revisions *desk.RevisionService
	clock     desk.Clock
	logger    desk.Logger
	op        *Operation
	logFile   *os.File

	mu       sync.Mutex
	lastOpID int64
}

// NewStudyApp creates a fully wired StudyApp from the given config.
// The caller must call Close when done.
func NewStudyApp(cfg *config.Config, opts Options) (*StudyApp, error) {
	clock := opts.Clock
	if clock == nil {
		clock = desk.RealClock{}
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID, clock)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date (run `studydesk migrate`): %w", err)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	opID := clock.Now().UTC().Format("20060102T150405Z")
	sl, logFile, err := newLogger(cfg.LogDir, opID, level)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl}

	a := &StudyApp{
		cfg:       cfg,
		db:        db,
		topics:    desk.NewTopicService(db, logger),
		revisions: desk.NewRevisionService(db, logger, clock),
		clock:     clock,
		logger:    logger,
		op:        NewOperation(opts.Operation, opts.Parameters),
		logFile:   logFile,
	}

	if len(cfg.Vaults) > 0 {
		snapshots, _, err := newSnapshotService(cfg, db, logger)
		if err != nil {
			a.closeResources()
			return nil, err
		}
		if err := snapshots.CheckVersion(); err != nil {
			a.closeResources()
			return nil, err
		}
		a.snapshots = snapshots
	}

	return a, nil
}

func newSnapshotService(cfg *config.Config, db desk.Database, logger desk.Logger) (*desk.SnapshotService, desk.Encryptor, error) {
	v, err := vault.NewVaultFromConfig(cfg.Vaults[0])
	if err != nil {
		return nil, nil, fmt.Errorf("creating vault: %w", err)
	}
	return snapshotServiceFor(cfg, v, db, logger)
}

// snapshotServiceFor checks that v is reachable and the keys exist before
// building the service.
func snapshotServiceFor(cfg *config.Config, v desk.Vault, db desk.Database, logger desk.Logger) (*desk.SnapshotService, desk.Encryptor, error) {
	if err := v.ValidateSetup(); err != nil {
		return nil, nil, fmt.Errorf("vault %s: %w", cfg.Vaults[0].Name, err)
	}
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if !enc.IsConfigured() {
		return nil, nil, fmt.Errorf("encryption keys missing (run `studydesk keys init`)")
	}
	return desk.NewSnapshotService(db, v, enc, cfg.HostID, logger), enc, nil
}

// persistOperation saves the command's operation to the database, giving it
// an auto-increment ID. Only DB-mutating commands call it.
func (a *StudyApp) persistOperation() error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	a.noteOperation(dbOp.ID)
	return nil
}

// mutate runs fn as part of the command's persisted operation.
func (a *StudyApp) mutate(fn func() error) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	err := fn()
	a.op.Observe(err)
	return err
}

func (a *StudyApp) noteOperation(id int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id > a.lastOpID {
		a.lastOpID = id
	}
}

// Record runs fn as its own recorded operation. The web server calls it for
// every mutating request.
func (a *StudyApp) Record(operation, parameters string, fn func() error) error {
	op, err := a.db.CreateOperation(operation, parameters)
	if err != nil {
		return fmt.Errorf("recording operation: %w", err)
	}
	a.noteOperation(op.ID)

	fnErr := fn()
	status := StatusSuccess
	if fnErr != nil {
		status = StatusError
	}
	if err := a.db.FinishOperation(op.ID, status); err != nil {
		a.logger.Error("finishing operation", "id", op.ID, "error", err)
	}
	return fnErr
}

// AddTopic appends a topic to its category.
func (a *StudyApp) AddTopic(name, category, resource string) (*desk.Topic, error) {
	var t *desk.Topic
	err := a.mutate(func() error {
		var err error
		t, err = a.topics.AddTopic(name, desk.Category(category), resource)
		return err
	})
	return t, err
}

// RemoveTopic deletes a topic by name.
func (a *StudyApp) RemoveTopic(name string) (*desk.Topic, error) {
	var t *desk.Topic
	err := a.mutate(func() error {
		var err error
		t, err = a.topics.RemoveTopic(name)
		return err
	})
	return t, err
}

// MoveTopic moves a topic within its category.
func (a *StudyApp) MoveTopic(name string, position int) (*desk.Topic, error) {
	var t *desk.Topic
	err := a.mutate(func() error {
		var err error
		t, err = a.topics.MoveTopic(name, position)
		return err
	})
	return t, err
}

// ListTopics lists topics. category is a category filter value ("All" or a
// category label) and query a case-insensitive name fragment; both may be
// empty, and both apply when given. A blank query is no query.
func (a *StudyApp) ListTopics(category, query string) ([]*desk.Topic, error) {
	query = strings.TrimSpace(query)
	filter, err := desk.ParseCategoryFilter(category)
	if err != nil {
		return nil, err
	}

	if query == "" {
		if !filter.IsSet() {
			return a.topics.ListTopics()
		}
		res, err := a.topics.FilterByCategory(filter)
		return res.Topics, err
	}

	res, err := a.topics.FilterByName(query)
	if err != nil {
		return nil, err
	}
	c, ok := filter.Category()
	if !ok {
		return res.Topics, nil
	}
	kept := make([]*desk.Topic, 0, len(res.Topics))
	for _, t := range res.Topics {
		if t.Category == c {
			kept = append(kept, t)
		}
	}
	return kept, nil
}

// CategoryCounts returns topic counts per non-empty category.
func (a *StudyApp) CategoryCounts() ([]desk.CategoryCount, error) {
	return a.topics.CategoryCounts()
}

// ImportTopics replaces every topic with the rows of a CSV file.
func (a *StudyApp) ImportTopics(r io.Reader) (int, []*desk.RowError, error) {
	rows, err := tabular.ReadTopics(r)
	if err != nil {
		return 0, nil, err
	}

	var (
		n       int
		skipped []*desk.RowError
	)
	err = a.mutate(func() error {
		var err error
		n, skipped, err = a.topics.ReplaceTopics(rows)
		return err
	})
	return n, skipped, err
}

// ExportTopics writes every topic as CSV to path, or to stdout when path is "-".
func (a *StudyApp) ExportTopics(path string, stdout io.Writer) error {
	topics, err := a.topics.ListTopics()
	if err != nil {
		return err
	}
	return export(path, stdout, func(w io.Writer) error { return tabular.WriteTopics(w, topics) })
}

// AddRevision schedules revisions for a topic. An empty date means today.
func (a *StudyApp) AddRevision(topicName, date string) (*desk.Revision, error) {
	var entry time.Time
	if date != "" {
		parsed, err := desk.ParseDate(date)
		if err != nil {
			return nil, err
		}
		entry = parsed
	}

	var rev *desk.Revision
	err := a.mutate(func() error {
		var err error
		rev, err = a.revisions.AddRevision(topicName, entry)
		return err
	})
	return rev, err
}

// RemoveRevision deletes a topic's revision schedule.
func (a *StudyApp) RemoveRevision(topicName string) error {
	return a.mutate(func() error { return a.revisions.RemoveRevision(topicName) })
}

// ListRevisions returns every revision schedule.
func (a *StudyApp) ListRevisions() ([]*desk.Revision, error) {
	return a.revisions.ListRevisions()
}

// DueOn returns the revisions falling on date. An empty date means today.
func (a *StudyApp) DueOn(date string) (time.Time, []desk.RevisionMatch, error) {
	day := desk.Today(a.clock)
	if date != "" {
		parsed, err := desk.ParseDate(date)
		if err != nil {
			return time.Time{}, nil, err
		}
		day = parsed
	}
	matches, err := a.revisions.DueOn(day)
	return day, matches, err
}

// ExportRevisions writes every revision schedule as CSV to path, or to
// stdout when path is "-".
func (a *StudyApp) ExportRevisions(path string, stdout io.Writer) error {
	revs, err := a.revisions.ListRevisions()
	if err != nil {
		return err
	}
	return export(path, stdout, func(w io.Writer) error { return tabular.WriteRevisions(w, revs) })
}

func export(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "-" || path == "" {
		return write(stdout)
	}
	return tabular.ExportFile(path, write)
}

// History returns the most recent operations.
func (a *StudyApp) History(limit int) ([]*desk.Operation, error) {
	return desk.History(a.db, limit)
}

// Serve runs the web interface until ctx is cancelled. ready, when not nil,
// receives the bound address once the listener is open.
func (a *StudyApp) Serve(ctx context.Context, addr string, ready func(addr string)) error {
	if addr == "" {
		addr = a.cfg.ListenAddr()
	}

	srv, err := web.NewServer(a.topics, a.revisions, a, a.clock, a.logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	a.logger.Info("web server started", "addr", ln.Addr().String())
	if ready != nil {
		ready(ln.Addr().String())
	}

	err = srv.Serve(ctx, ln)
	a.logger.Info("web server stopped", "addr", ln.Addr().String())
	return err
}

// Close finalizes the operation and closes all resources.
// When anything was recorded, the operation log is finished and the database
// snapshot is uploaded with the newest operation ID as its version.
func (a *StudyApp) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			keep(fmt.Errorf("finishing operation: %w", err))
		}
	}

	a.mu.Lock()
	version := a.lastOpID
	a.mu.Unlock()

	if version > 0 && a.snapshots != nil {
		if err := a.snapshots.Push(version); err != nil {
			keep(err)
		}
	}

	keep(a.closeResources())
	return firstErr
}

func (a *StudyApp) closeResources() error {
	var err error
	if cerr := a.db.Close(); cerr != nil {
		err = fmt.Errorf("closing database: %w", cerr)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return err
}

// Migrate applies all pending schema migrations to the configured database.
func Migrate(cfg *config.Config) (before, after uint, err error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	status, err := db.MigrationStatus()
	if err != nil {
		return 0, 0, err
	}
	if err := db.MigrateUp(); err != nil {
		return 0, 0, err
	}
	return status.Version, status.Latest, nil
}

// SetupKeys generates the encryption key pair protected by passphrase.
func SetupKeys(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return err
	}
	return enc.Setup(passphrase)
}

// RestoreSnapshot downloads the latest snapshot from the first vault and
// replaces the local database file with it.
func RestoreSnapshot(cfg *config.Config, passphrase string) (string, error) {
	if len(cfg.Vaults) == 0 {
		return "", fmt.Errorf("no vaults configured")
	}
	if cfg.Database.Type != "sqlite" {
		return "", fmt.Errorf("restore needs a sqlite database, not %q", cfg.Database.Type)
	}
	dbPath, err := database.DatabasePath(cfg.Database, cfg.HostID)
	if err != nil {
		return "", err
	}

	snapshots, enc, err := newSnapshotService(cfg, nil, desk.NewNopLogger())
	if err != nil {
		return "", err
	}
	dec, err := enc.Unlock(passphrase)
	if err != nil {
		return "", fmt.Errorf("unlocking keys: %w", err)
	}

	var buf bytes.Buffer
	if err := snapshots.Pull(dec, &buf); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	if err := atomic.WriteFile(dbPath, &buf); err != nil {
		return "", fmt.Errorf("writing %s: %w", dbPath, err)
	}
	return dbPath, nil
}
