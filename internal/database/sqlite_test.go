package database

import (
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"studydesk/internal/desk"
)

// newTestDB creates a new in-memory database with schema applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	if _, err := db.db.Exec(Schema); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func mustInsert(t *testing.T, db *SQLiteDatabase, name string, c desk.Category) *desk.Topic {
	t.Helper()
	topic, err := db.InsertTopic(desk.TopicInput{Name: name, Category: c, Resource: name + " notes"})
	if err != nil {
		t.Fatalf("InsertTopic(%q) error = %v", name, err)
	}
	return topic
}

// namesIn returns the topic names of a category in position order.
func namesIn(t *testing.T, db *SQLiteDatabase, c desk.Category) []string {
	t.Helper()
	topics, err := db.ListTopicsInCategory(c)
	if err != nil {
		t.Fatalf("ListTopicsInCategory(%s) error = %v", c, err)
	}
	names := make([]string, 0, len(topics))
	for _, topic := range topics {
		names = append(names, topic.Name)
	}
	return names
}

// assertDense fails unless every category holds exactly positions 0..n-1.
func assertDense(t *testing.T, db *SQLiteDatabase) {
	t.Helper()
	for _, c := range desk.Categories() {
		topics, err := db.ListTopicsInCategory(c)
		if err != nil {
			t.Fatalf("ListTopicsInCategory(%s) error = %v", c, err)
		}
		for i, topic := range topics {
			if topic.Position != i {
				t.Fatalf("category %s: topic %q at index %d has position %d", c, topic.Name, i, topic.Position)
			}
		}
	}
}

func TestSQLiteDatabase_InsertTopic(t *testing.T) {
	t.Run("appends at the end of the category", func(t *testing.T) {
		db := newTestDB(t)

		for i, name := range []string{"Backprop", "Dropout", "Attention"} {
			topic := mustInsert(t, db, name, desk.CategoryDL)
			if topic.Position != i {
				t.Errorf("%s position = %d, want %d", name, topic.Position, i)
			}
		}

		other := mustInsert(t, db, "Bayes", desk.CategoryStats)
		if other.Position != 0 {
			t.Errorf("first topic of another category position = %d, want 0", other.Position)
		}
	})

	t.Run("rejects duplicate name without changing state", func(t *testing.T) {
		db := newTestDB(t)
		mustInsert(t, db, "Backprop", desk.CategoryDL)

		_, err := db.InsertTopic(desk.TopicInput{Name: "Backprop", Category: desk.CategoryML})
		if !errors.Is(err, desk.ErrDuplicateName) {
			t.Fatalf("InsertTopic() error = %v, want ErrDuplicateName", err)
		}

		if got := namesIn(t, db, desk.CategoryML); len(got) != 0 {
			t.Errorf("ML topics = %v, want none", got)
		}
		found, err := db.FindTopic("Backprop")
		if err != nil {
			t.Fatalf("FindTopic() error = %v", err)
		}
		if found.Category != desk.CategoryDL || found.Position != 0 {
			t.Errorf("FindTopic() = %+v, want DL at 0", found)
		}
	})
}

func TestSQLiteDatabase_DeleteTopic(t *testing.T) {
	t.Run("compacts later positions in the same category only", func(t *testing.T) {
		db := newTestDB(t)
		for _, name := range []string{"a", "b", "c", "d"} {
			mustInsert(t, db, name, desk.CategoryNLP)
		}
		mustInsert(t, db, "x", desk.CategoryCV)
		mustInsert(t, db, "y", desk.CategoryCV)

		deleted, err := db.DeleteTopic("b")
		if err != nil {
			t.Fatalf("DeleteTopic() error = %v", err)
		}
		if deleted.Position != 1 || deleted.Category != desk.CategoryNLP {
			t.Errorf("DeleteTopic() = %+v, want NLP at 1", deleted)
		}

		if diff := cmp.Diff([]string{"a", "c", "d"}, namesIn(t, db, desk.CategoryNLP)); diff != "" {
			t.Errorf("NLP order mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"x", "y"}, namesIn(t, db, desk.CategoryCV)); diff != "" {
			t.Errorf("CV order mismatch (-want +got):\n%s", diff)
		}
		assertDense(t, db)
	})

	t.Run("deleting the only topic empties the category", func(t *testing.T) {
		db := newTestDB(t)
		mustInsert(t, db, "solo", desk.CategoryStats)

		if _, err := db.DeleteTopic("solo"); err != nil {
			t.Fatalf("DeleteTopic() error = %v", err)
		}
		if got := namesIn(t, db, desk.CategoryStats); len(got) != 0 {
			t.Errorf("Stats topics = %v, want none", got)
		}
	})

	t.Run("unknown name is NotFound and leaves positions intact", func(t *testing.T) {
		db := newTestDB(t)
		mustInsert(t, db, "a", desk.CategoryML)
		mustInsert(t, db, "b", desk.CategoryML)

		_, err := db.DeleteTopic("missing")
		if !errors.Is(err, desk.ErrNotFound) {
			t.Fatalf("DeleteTopic() error = %v, want ErrNotFound", err)
		}
		if diff := cmp.Diff([]string{"a", "b"}, namesIn(t, db, desk.CategoryML)); diff != "" {
			t.Errorf("ML order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("reinsert after delete takes the next free position", func(t *testing.T) {
		db := newTestDB(t)
		for _, name := range []string{"a", "b", "c"} {
			mustInsert(t, db, name, desk.CategoryML)
		}
		if _, err := db.DeleteTopic("a"); err != nil {
			t.Fatalf("DeleteTopic() error = %v", err)
		}

		topic := mustInsert(t, db, "d", desk.CategoryML)
		if topic.Position != 2 {
			t.Errorf("reinserted position = %d, want 2", topic.Position)
		}
		assertDense(t, db)
	})
}

func TestSQLiteDatabase_ReorderTopic(t *testing.T) {
	seed := func(t *testing.T) *SQLiteDatabase {
		db := newTestDB(t)
		for _, name := range []string{"a", "b", "c", "d", "e"} {
			mustInsert(t, db, name, desk.CategoryDL)
		}
		mustInsert(t, db, "other", desk.CategoryML)
		return db
	}

	tests := []struct {
		name   string
		topic  string
		target int
		want   []string
	}{
		{name: "move forward", topic: "b", target: 3, want: []string{"a", "c", "d", "b", "e"}},
		{name: "move backward", topic: "d", target: 1, want: []string{"a", "d", "b", "c", "e"}},
		{name: "move to front", topic: "e", target: 0, want: []string{"e", "a", "b", "c", "d"}},
		{name: "move to back", topic: "a", target: 4, want: []string{"b", "c", "d", "e", "a"}},
		{name: "same position is a no-op", topic: "c", target: 2, want: []string{"a", "b", "c", "d", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := seed(t)

			moved, err := db.ReorderTopic(tt.topic, tt.target)
			if err != nil {
				t.Fatalf("ReorderTopic() error = %v", err)
			}
			if moved.Position != tt.target {
				t.Errorf("moved position = %d, want %d", moved.Position, tt.target)
			}

			if diff := cmp.Diff(tt.want, namesIn(t, db, desk.CategoryDL)); diff != "" {
				t.Errorf("DL order mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]string{"other"}, namesIn(t, db, desk.CategoryML)); diff != "" {
				t.Errorf("ML order mismatch (-want +got):\n%s", diff)
			}
			assertDense(t, db)
		})
	}

	t.Run("rejects out of range targets", func(t *testing.T) {
		db := seed(t)
		for _, target := range []int{-1, 5, 100} {
			_, err := db.ReorderTopic("a", target)
			if !errors.Is(err, desk.ErrInvalidPosition) {
				t.Errorf("ReorderTopic(a, %d) error = %v, want ErrInvalidPosition", target, err)
			}
		}
		if diff := cmp.Diff([]string{"a", "b", "c", "d", "e"}, namesIn(t, db, desk.CategoryDL)); diff != "" {
			t.Errorf("DL order changed (-want +got):\n%s", diff)
		}
	})

	t.Run("rejects unknown names", func(t *testing.T) {
		db := seed(t)
		if _, err := db.ReorderTopic("missing", 0); !errors.Is(err, desk.ErrNotFound) {
			t.Errorf("ReorderTopic() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("move and move back restores the order", func(t *testing.T) {
		db := seed(t)
		before := namesIn(t, db, desk.CategoryDL)

		for _, tc := range []struct{ from, to int }{{0, 4}, {4, 0}, {1, 3}, {3, 2}} {
			name := before[tc.from]
			if _, err := db.ReorderTopic(name, tc.to); err != nil {
				t.Fatalf("ReorderTopic(%s, %d) error = %v", name, tc.to, err)
			}
			if _, err := db.ReorderTopic(name, tc.from); err != nil {
				t.Fatalf("ReorderTopic(%s, %d) error = %v", name, tc.from, err)
			}
			if diff := cmp.Diff(before, namesIn(t, db, desk.CategoryDL)); diff != "" {
				t.Errorf("order after %d->%d->%d (-want +got):\n%s", tc.from, tc.to, tc.from, diff)
			}
		}
	})
}

func TestSQLiteDatabase_DenseUnderRandomOperations(t *testing.T) {
	db := newTestDB(t)
	rng := rand.New(rand.NewSource(42))
	cats := []desk.Category{desk.CategoryML, desk.CategoryDL, desk.CategoryCV}

	var live []string
	for i := 0; i < 300; i++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(live) == 0:
			name := fmt.Sprintf("topic-%d", i)
			if _, err := db.InsertTopic(desk.TopicInput{Name: name, Category: cats[rng.Intn(len(cats))]}); err != nil {
				t.Fatalf("step %d: InsertTopic() error = %v", i, err)
			}
			live = append(live, name)
		case op == 1:
			idx := rng.Intn(len(live))
			if _, err := db.DeleteTopic(live[idx]); err != nil {
				t.Fatalf("step %d: DeleteTopic() error = %v", i, err)
			}
			live = append(live[:idx], live[idx+1:]...)
		default:
			name := live[rng.Intn(len(live))]
			topic, err := db.FindTopic(name)
			if err != nil {
				t.Fatalf("step %d: FindTopic() error = %v", i, err)
			}
			n := len(namesIn(t, db, topic.Category))
			if _, err := db.ReorderTopic(name, rng.Intn(n)); err != nil {
				t.Fatalf("step %d: ReorderTopic() error = %v", i, err)
			}
		}
		assertDense(t, db)
	}
}

func TestSQLiteDatabase_ReplaceTopics(t *testing.T) {
	db := newTestDB(t)
	mustInsert(t, db, "old", desk.CategoryML)

	err := db.ReplaceTopics([]desk.TopicInput{
		{Name: "a", Category: desk.CategoryML},
		{Name: "b", Category: desk.CategoryDL},
		{Name: "c", Category: desk.CategoryML},
		{Name: "d", Category: desk.CategoryDL},
	})
	if err != nil {
		t.Fatalf("ReplaceTopics() error = %v", err)
	}

	if found, _ := db.FindTopic("old"); found != nil {
		t.Errorf("old topic still present: %+v", found)
	}
	if diff := cmp.Diff([]string{"a", "c"}, namesIn(t, db, desk.CategoryML)); diff != "" {
		t.Errorf("ML order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "d"}, namesIn(t, db, desk.CategoryDL)); diff != "" {
		t.Errorf("DL order mismatch (-want +got):\n%s", diff)
	}
	assertDense(t, db)

	t.Run("duplicate input rolls back", func(t *testing.T) {
		err := db.ReplaceTopics([]desk.TopicInput{
			{Name: "z", Category: desk.CategoryML},
			{Name: "z", Category: desk.CategoryDL},
		})
		if !errors.Is(err, desk.ErrDuplicateName) {
			t.Fatalf("ReplaceTopics() error = %v, want ErrDuplicateName", err)
		}
		if diff := cmp.Diff([]string{"a", "c"}, namesIn(t, db, desk.CategoryML)); diff != "" {
			t.Errorf("ML order changed (-want +got):\n%s", diff)
		}
	})
}

func TestSQLiteDatabase_ListTopics(t *testing.T) {
	db := newTestDB(t)
	mustInsert(t, db, "doc", desk.CategoryDocumentation)
	mustInsert(t, db, "ml-1", desk.CategoryML)
	mustInsert(t, db, "stats", desk.CategoryStats)
	mustInsert(t, db, "ml-2", desk.CategoryML)

	topics, err := db.ListTopics()
	if err != nil {
		t.Fatalf("ListTopics() error = %v", err)
	}

	var got []string
	for _, topic := range topics {
		got = append(got, topic.Name)
	}
	if diff := cmp.Diff([]string{"ml-1", "ml-2", "stats", "doc"}, got); diff != "" {
		t.Errorf("ListTopics() order mismatch (-want +got):\n%s", diff)
	}

	counts, err := db.CountTopicsByCategory()
	if err != nil {
		t.Fatalf("CountTopicsByCategory() error = %v", err)
	}
	want := []desk.CategoryCount{
		{Category: desk.CategoryML, Count: 2},
		{Category: desk.CategoryStats, Count: 1},
		{Category: desk.CategoryDocumentation, Count: 1},
	}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("CountTopicsByCategory() mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteDatabase_Revisions(t *testing.T) {
	entry := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("upsert replaces every date", func(t *testing.T) {
		db := newTestDB(t)

		if err := db.UpsertRevision(desk.NewRevision("Graphs", entry)); err != nil {
			t.Fatalf("UpsertRevision() error = %v", err)
		}
		later := entry.AddDate(0, 1, 0)
		if err := db.UpsertRevision(desk.NewRevision("Graphs", later)); err != nil {
			t.Fatalf("UpsertRevision() error = %v", err)
		}

		revs, err := db.ListRevisions()
		if err != nil {
			t.Fatalf("ListRevisions() error = %v", err)
		}
		if len(revs) != 1 {
			t.Fatalf("len(ListRevisions()) = %d, want 1", len(revs))
		}
		if diff := cmp.Diff(desk.NewRevision("Graphs", later), revs[0]); diff != "" {
			t.Errorf("stored revision mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("find by any slot date", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.UpsertRevision(desk.NewRevision("Graphs", entry)); err != nil {
			t.Fatalf("UpsertRevision() error = %v", err)
		}
		if err := db.UpsertRevision(desk.NewRevision("Trees", entry.AddDate(0, 0, 1))); err != nil {
			t.Fatalf("UpsertRevision() error = %v", err)
		}

		revs, err := db.FindRevisionsOn(time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("FindRevisionsOn() error = %v", err)
		}
		if len(revs) != 1 || revs[0].TopicName != "Graphs" {
			t.Errorf("FindRevisionsOn() = %v, want only Graphs", revs)
		}

		none, err := db.FindRevisionsOn(entry)
		if err != nil {
			t.Fatalf("FindRevisionsOn() error = %v", err)
		}
		if len(none) != 0 {
			t.Errorf("FindRevisionsOn(entry date) = %v, want none", none)
		}
	})

	t.Run("delete", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.UpsertRevision(desk.NewRevision("Graphs", entry)); err != nil {
			t.Fatalf("UpsertRevision() error = %v", err)
		}

		if err := db.DeleteRevision("Graphs"); err != nil {
			t.Fatalf("DeleteRevision() error = %v", err)
		}
		if err := db.DeleteRevision("Graphs"); !errors.Is(err, desk.ErrNotFound) {
			t.Errorf("second DeleteRevision() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteDatabase_Operations(t *testing.T) {
	db := newTestDB(t)

	maxID, err := db.MaxOperationID()
	if err != nil {
		t.Fatalf("MaxOperationID() error = %v", err)
	}
	if maxID != 0 {
		t.Errorf("MaxOperationID() on empty log = %d, want 0", maxID)
	}

	first, err := db.CreateOperation("AddTopic", "Backprop")
	if err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}
	second, err := db.CreateOperation("MoveTopic", "Backprop")
	if err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}
	if err := db.FinishOperation(first.ID, "success"); err != nil {
		t.Fatalf("FinishOperation() error = %v", err)
	}

	ops, err := db.ListOperations(10)
	if err != nil {
		t.Fatalf("ListOperations() error = %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("len(ListOperations()) = %d, want 2", len(ops))
	}
	if ops[0].ID != second.ID {
		t.Errorf("newest operation ID = %d, want %d", ops[0].ID, second.ID)
	}
	if ops[0].FinishedAt != nil {
		t.Error("unfinished operation has FinishedAt set")
	}
	if ops[1].Status != "success" || ops[1].FinishedAt == nil {
		t.Errorf("finished operation = %+v, want success with FinishedAt", ops[1])
	}

	maxID, err = db.MaxOperationID()
	if err != nil {
		t.Fatalf("MaxOperationID() error = %v", err)
	}
	if maxID != second.ID {
		t.Errorf("MaxOperationID() = %d, want %d", maxID, second.ID)
	}
}

func TestSQLiteDatabase_BackupTo(t *testing.T) {
	db := newTestDB(t)
	mustInsert(t, db, "Backprop", desk.CategoryDL)

	dest := filepath.Join(t.TempDir(), "copy.db")
	if err := db.BackupTo(dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	copyDB, err := NewSQLiteDatabase(dest, nil)
	if err != nil {
		t.Fatalf("opening backup: %v", err)
	}
	defer copyDB.Close()

	found, err := copyDB.FindTopic("Backprop")
	if err != nil {
		t.Fatalf("FindTopic() on backup error = %v", err)
	}
	if found == nil {
		t.Fatal("backup is missing Backprop")
	}
}
