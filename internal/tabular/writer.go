package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/natefinch/atomic"

	"studydesk/internal/desk"
)

// WriteTopics writes topics with a header in the order given.
func WriteTopics(w io.Writer, topics []*desk.Topic) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TopicHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, t := range topics {
		rec := []string{t.Name, string(t.Category), t.Resource, strconv.Itoa(t.Position)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing topic %q: %w", t.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRevisions writes revision schedules with a header in the order given.
func WriteRevisions(w io.Writer, revs []*desk.Revision) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RevisionHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range revs {
		rec := make([]string, 0, len(RevisionHeader))
		rec = append(rec, r.TopicName, r.EntryDate.Format(desk.DateLayout))
		for _, d := range r.Dates {
			rec = append(rec, d.Format(desk.DateLayout))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing revision %q: %w", r.TopicName, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFile renders with write and replaces path in one step, so readers
// never observe a partial file.
func ExportFile(path string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
