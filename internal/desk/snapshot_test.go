package desk_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"studydesk/internal/database"
	"studydesk/internal/desk"
	"studydesk/internal/testutil"
)

func TestSnapshotService(t *testing.T) {
	setup := func(t *testing.T) (*desk.SnapshotService, desk.Database, *testutil.StubClock) {
		t.Helper()
		clock := testutil.FixedClock()
		db := testutil.NewTestDatabase(t, clock)
		svc := desk.NewSnapshotService(db, testutil.NewTestVault(), testutil.NewTestEncryptor(), "host-1", desk.NewNopLogger())
		return svc, db, clock
	}

	t.Run("check passes on an empty vault", func(t *testing.T) {
		svc, _, _ := setup(t)
		if err := svc.CheckVersion(); err != nil {
			t.Errorf("CheckVersion() error = %v", err)
		}
	})

	t.Run("push then pull restores a usable database", func(t *testing.T) {
		svc, db, clock := setup(t)

		topics := desk.NewTopicService(db, desk.NewNopLogger())
		if _, err := topics.AddTopic("Attention", desk.CategoryNLP, "paper"); err != nil {
			t.Fatal(err)
		}
		op, err := db.CreateOperation("topic add", "Attention")
		if err != nil {
			t.Fatal(err)
		}
		if err := svc.Push(op.ID); err != nil {
			t.Fatalf("Push() error = %v", err)
		}
		if err := svc.CheckVersion(); err != nil {
			t.Errorf("CheckVersion() after push error = %v", err)
		}

		dec, err := testutil.NewTestEncryptor().Unlock("")
		if err != nil {
			t.Fatal(err)
		}
		var restored bytes.Buffer
		if err := svc.Pull(dec, &restored); err != nil {
			t.Fatalf("Pull() error = %v", err)
		}
		if !strings.HasPrefix(restored.String(), "SQLite format 3") {
			t.Fatalf("restored data is not a SQLite database")
		}

		path := filepath.Join(t.TempDir(), "restored.db")
		if err := os.WriteFile(path, restored.Bytes(), 0600); err != nil {
			t.Fatal(err)
		}
		copyDB, err := database.NewSQLiteDatabase(path, clock)
		if err != nil {
			t.Fatalf("opening restored database: %v", err)
		}
		defer copyDB.Close()

		got, err := copyDB.FindTopic("Attention")
		if err != nil || got == nil {
			t.Fatalf("FindTopic() in restored db = %v, %v", got, err)
		}
		if got.Category != desk.CategoryNLP {
			t.Errorf("restored category = %q, want NLP", got.Category)
		}
	})

	t.Run("check fails when the vault is ahead", func(t *testing.T) {
		clock := testutil.FixedClock()
		db := testutil.NewTestDatabase(t, clock)
		vault := testutil.NewTestVault()
		if err := vault.PutMetadata("host-1", desk.SnapshotName, strings.NewReader("x"), 1, 5); err != nil {
			t.Fatal(err)
		}

		svc := desk.NewSnapshotService(db, vault, testutil.NewTestEncryptor(), "host-1", desk.NewNopLogger())
		if err := svc.CheckVersion(); err == nil {
			t.Error("CheckVersion() expected error when remote is ahead")
		}
	})

	t.Run("pull without snapshot fails", func(t *testing.T) {
		svc, _, _ := setup(t)
		dec, _ := testutil.NewTestEncryptor().Unlock("")
		var buf bytes.Buffer
		if err := svc.Pull(dec, &buf); err == nil {
			t.Error("Pull() expected error with empty vault")
		}
	})
}

func TestHistory(t *testing.T) {
	db := testutil.NewTestDatabase(t, testutil.FixedClock())
	for _, name := range []string{"topic add", "topic mv", "revision add"} {
		if _, err := db.CreateOperation(name, ""); err != nil {
			t.Fatal(err)
		}
	}

	ops, err := desk.History(db, 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(ops) != 2 || ops[0].Operation != "revision add" {
		t.Errorf("History(2) = %d ops, first %q", len(ops), ops[0].Operation)
	}

	ops, err = desk.History(db, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(ops) != 3 {
		t.Errorf("History(0) = %d ops, want 3", len(ops))
	}
}
