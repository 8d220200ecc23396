package desk

import (
	"fmt"
	"strings"
	"time"
)

// RevisionSlots is the number of review dates generated per topic.
const RevisionSlots = 5

// RevisionOffsets is the spaced-repetition pattern in days. Each offset is
// added to the previously computed date, not to the entry date.
var RevisionOffsets = [RevisionSlots]int{7, 14, 30, 60, 90}

// DateLayout is the storage and form format of calendar dates.
const DateLayout = "2006-01-02"

// Revision is a topic with its entry date and generated review dates.
type Revision struct {
	TopicName string
	EntryDate time.Time
	Dates     [RevisionSlots]time.Time
}

// RevisionMatch names one review slot that falls on a queried date.
// Slot is 1-based, matching the "Revision N" column labels.
type RevisionMatch struct {
	TopicName string
	Slot      int
}

// SlotLabel returns the display label of the matched column.
func (m RevisionMatch) SlotLabel() string {
	return fmt.Sprintf("Revision %d", m.Slot)
}

// Schedule accumulates offsets onto entry, one date per offset.
func Schedule(entry time.Time, offsets []int) []time.Time {
	dates := make([]time.Time, 0, len(offsets))
	current := DateOf(entry)
	for _, days := range offsets {
		current = current.AddDate(0, 0, days)
		dates = append(dates, current)
	}
	return dates
}

// NewRevision builds the revision record for a topic entered on entry.
func NewRevision(topicName string, entry time.Time) *Revision {
	rev := &Revision{TopicName: topicName, EntryDate: DateOf(entry)}
	copy(rev.Dates[:], Schedule(entry, RevisionOffsets[:]))
	return rev
}

// ParseDate parses a calendar date in DateLayout.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// RevisionService implements the revision scheduler operations.
type RevisionService struct {
	store  RevisionStore
	logger Logger
	clock  Clock
}

// NewRevisionService creates a RevisionService.
func NewRevisionService(store RevisionStore, logger Logger, clock Clock) *RevisionService {
	return &RevisionService{store: store, logger: logger, clock: clock}
}

// AddRevision schedules reviews for a topic. A zero entry date means today.
// Re-adding an existing topic replaces all of its dates.
func (s *RevisionService) AddRevision(topicName string, entry time.Time) (*Revision, error) {
	topicName = strings.TrimSpace(topicName)
	if topicName == "" {
		return nil, ErrEmptyName
	}
	if entry.IsZero() {
		entry = Today(s.clock)
	}

	rev := NewRevision(topicName, entry)
	if err := s.store.UpsertRevision(rev); err != nil {
		return nil, fmt.Errorf("scheduling %q: %w", topicName, err)
	}

	s.logger.Info("revision scheduled", "topic", rev.TopicName,
		"entry_date", rev.EntryDate.Format(DateLayout),
		"last_revision", rev.Dates[RevisionSlots-1].Format(DateLayout))
	return rev, nil
}

// RemoveRevision deletes the schedule of a topic.
func (s *RevisionService) RemoveRevision(topicName string) error {
	topicName = strings.TrimSpace(topicName)
	if topicName == "" {
		return ErrEmptyName
	}
	if err := s.store.DeleteRevision(topicName); err != nil {
		return fmt.Errorf("removing revision %q: %w", topicName, err)
	}
	s.logger.Info("revision removed", "topic", topicName)
	return nil
}

// ListRevisions returns every stored schedule.
func (s *RevisionService) ListRevisions() ([]*Revision, error) {
	return s.store.ListRevisions()
}

// DueOn returns one match per revision slot that falls on date. Every slot
// of every candidate is checked, so a topic whose slots coincide appears once
// per coinciding slot.
func (s *RevisionService) DueOn(date time.Time) ([]RevisionMatch, error) {
	date = DateOf(date)
	revs, err := s.store.FindRevisionsOn(date)
	if err != nil {
		return nil, fmt.Errorf("finding revisions on %s: %w", date.Format(DateLayout), err)
	}
	return MatchRevisions(revs, date), nil
}

// MatchRevisions scans all slots of revs and emits a match per slot equal to date.
func MatchRevisions(revs []*Revision, date time.Time) []RevisionMatch {
	date = DateOf(date)
	var matches []RevisionMatch
	for _, rev := range revs {
		for i, d := range rev.Dates {
			if DateOf(d).Equal(date) {
				matches = append(matches, RevisionMatch{TopicName: rev.TopicName, Slot: i + 1})
			}
		}
	}
	return matches
}
