package desk

import (
	"errors"
	"fmt"
	"strings"
)

// Topic is a tracked subject with its learning resource. Position is the
// zero-based rank of the topic inside its category.
type Topic struct {
	Name     string
	Category Category
	Resource string
	Position int
}

// TopicInput carries validated fields for a new topic.
type TopicInput struct {
	Name     string
	Category Category
	Resource string
}

// TopicRow is one raw row handed over by a bulk importer.
// ParseErr is set when the importer could not read the row at all.
type TopicRow struct {
	Line     int
	Name     string
	Category string
	Resource string
	ParseErr error
}

// CategoryCount is the number of topics held by a category.
type CategoryCount struct {
	Category Category
	Count    int
}

// TopicResult is the outcome of a filtered topic query. Requested is false
// when no filter was asked for, which is different from a filter that
// matched zero topics.
type TopicResult struct {
	Requested bool
	Topics    []*Topic
}

// NoResults reports whether a requested filter matched nothing.
func (r TopicResult) NoResults() bool {
	return r.Requested && len(r.Topics) == 0
}

// DefaultResource is the placeholder resource text offered by the add form.
const DefaultResource = "List of resources"

// TopicService implements the topic tracker operations on top of a TopicStore.
type TopicService struct {
	store  TopicStore
	logger Logger
}

// NewTopicService creates a TopicService.
func NewTopicService(store TopicStore, logger Logger) *TopicService {
	return &TopicService{store: store, logger: logger}
}

// AddTopic appends a topic to the end of its category.
// A duplicate name returns ErrDuplicateName and changes nothing.
func (s *TopicService) AddTopic(name string, category Category, resource string) (*Topic, error) {
	input, err := newTopicInput(name, string(category), resource)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindTopic(input.Name)
	if err != nil {
		return nil, fmt.Errorf("looking up topic %q: %w", input.Name, err)
	}
	if existing != nil {
		s.logger.Info("topic already exists", "name", existing.Name, "category", existing.Category)
		return nil, fmt.Errorf("%w: %q is listed under %s at position %d",
			ErrDuplicateName, existing.Name, existing.Category, existing.Position)
	}

	topic, err := s.store.InsertTopic(input)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			s.logger.Info("topic already exists", "name", input.Name)
		}
		return nil, err
	}

	s.logger.Info("topic added", "name", topic.Name, "category", topic.Category, "position", topic.Position)
	return topic, nil
}

// RemoveTopic deletes a topic by name.
func (s *TopicService) RemoveTopic(name string) (*Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	topic, err := s.store.DeleteTopic(name)
	if err != nil {
		return nil, fmt.Errorf("removing topic %q: %w", name, err)
	}

	s.logger.Info("topic removed", "name", topic.Name, "category", topic.Category, "position", topic.Position)
	return topic, nil
}

// MoveTopic moves a topic to a new position inside its category.
// Moving a topic to its current position is a no-op.
func (s *TopicService) MoveTopic(name string, newPosition int) (*Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	topic, err := s.store.ReorderTopic(name, newPosition)
	if err != nil {
		return nil, fmt.Errorf("moving topic %q: %w", name, err)
	}

	s.logger.Info("topic moved", "name", topic.Name, "category", topic.Category, "position", topic.Position)
	return topic, nil
}

// ListTopics returns every topic ordered by category, then position.
func (s *TopicService) ListTopics() ([]*Topic, error) {
	return s.store.ListTopics()
}

// FilterByCategory applies a category filter. The unset filter yields a
// result with Requested == false and no rows.
func (s *TopicService) FilterByCategory(filter CategoryFilter) (TopicResult, error) {
	if !filter.IsSet() {
		return TopicResult{}, nil
	}

	var (
		topics []*Topic
		err    error
	)
	if c, ok := filter.Category(); ok {
		topics, err = s.store.ListTopicsInCategory(c)
	} else {
		topics, err = s.store.ListTopics()
	}
	if err != nil {
		return TopicResult{}, fmt.Errorf("filtering by category: %w", err)
	}
	return TopicResult{Requested: true, Topics: topics}, nil
}

// FilterByName returns topics whose name contains query, ignoring case.
// A blank query is the unset filter.
func (s *TopicService) FilterByName(query string) (TopicResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return TopicResult{}, nil
	}

	all, err := s.store.ListTopics()
	if err != nil {
		return TopicResult{}, fmt.Errorf("filtering by name: %w", err)
	}

	needle := strings.ToLower(query)
	matched := make([]*Topic, 0, len(all))
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Name), needle) {
			matched = append(matched, t)
		}
	}
	return TopicResult{Requested: true, Topics: matched}, nil
}

// CategoryCounts returns the number of topics in each non-empty category.
func (s *TopicService) CategoryCounts() ([]CategoryCount, error) {
	return s.store.CountTopicsByCategory()
}

// ReplaceTopics clears the store and bulk inserts rows in order.
// Rows that fail validation or repeat an earlier name are skipped and
// reported; the remaining rows are still inserted. Returns the number of
// topics stored.
func (s *TopicService) ReplaceTopics(rows []TopicRow) (int, []*RowError, error) {
	var (
		inputs  = make([]TopicInput, 0, len(rows))
		skipped []*RowError
		seen    = make(map[string]int, len(rows))
	)

	for _, row := range rows {
		if row.ParseErr != nil {
			skipped = append(skipped, &RowError{Line: row.Line, Err: row.ParseErr})
			continue
		}
		input, err := newTopicInput(row.Name, row.Category, row.Resource)
		if err != nil {
			skipped = append(skipped, &RowError{Line: row.Line, Err: err})
			continue
		}
		if first, dup := seen[input.Name]; dup {
			skipped = append(skipped, &RowError{
				Line: row.Line,
				Err:  fmt.Errorf("%w: %q first seen on line %d", ErrDuplicateName, input.Name, first),
			})
			continue
		}
		seen[input.Name] = row.Line
		inputs = append(inputs, input)
	}

	if err := s.store.ReplaceTopics(inputs); err != nil {
		return 0, skipped, fmt.Errorf("replacing topics: %w", err)
	}

	for _, e := range skipped {
		s.logger.Warn("import row skipped", "line", e.Line, "error", e.Err)
	}
	s.logger.Info("topics replaced", "imported", len(inputs), "skipped", len(skipped))
	return len(inputs), skipped, nil
}

func newTopicInput(name, category, resource string) (TopicInput, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return TopicInput{}, ErrEmptyName
	}
	c, err := ParseCategory(category)
	if err != nil {
		return TopicInput{}, err
	}
	return TopicInput{Name: name, Category: c, Resource: strings.TrimSpace(resource)}, nil
}
