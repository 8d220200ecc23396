package desk

import (
	"fmt"
	"strings"
)

// Category is one of the fixed labels that partition topics.
type Category string

const (
	CategoryML            Category = "ML"
	CategoryDL            Category = "DL"
	CategoryNLP           Category = "NLP"
	CategoryCV            Category = "CV"
	CategoryStats         Category = "Stats"
	CategoryTechnologies  Category = "Technologies"
	CategoryDocumentation Category = "Documentation"
)

// AllLabel is the category filter value that selects every topic.
const AllLabel = "All"

var categories = []Category{
	CategoryML,
	CategoryDL,
	CategoryNLP,
	CategoryCV,
	CategoryStats,
	CategoryTechnologies,
	CategoryDocumentation,
}

// Categories returns the recognized categories in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory validates s against the fixed category set.
// Matching is exact after trimming surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Valid reports whether c is one of the recognized categories.
func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

func (c Category) String() string { return string(c) }

type filterMode int

const (
	filterUnset filterMode = iota
	filterAll
	filterOne
)

// CategoryFilter selects topics by category. The zero value is the
// "no filter requested" state, distinct from a filter that matches nothing.
type CategoryFilter struct {
	mode     filterMode
	category Category
}

// NoCategoryFilter returns the unset filter.
func NoCategoryFilter() CategoryFilter { return CategoryFilter{} }

// AllCategoriesFilter returns a filter matching every topic.
func AllCategoriesFilter() CategoryFilter { return CategoryFilter{mode: filterAll} }

// OnlyCategory returns a filter matching topics in c.
func OnlyCategory(c Category) CategoryFilter {
	return CategoryFilter{mode: filterOne, category: c}
}

// ParseCategoryFilter turns raw form input into a filter. An empty string is
// the unset filter, AllLabel selects everything, anything else must be a
// recognized category.
func ParseCategoryFilter(s string) (CategoryFilter, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return NoCategoryFilter(), nil
	case AllLabel:
		return AllCategoriesFilter(), nil
	}
	c, err := ParseCategory(s)
	if err != nil {
		return CategoryFilter{}, err
	}
	return OnlyCategory(c), nil
}

// IsSet reports whether a filter was requested at all.
func (f CategoryFilter) IsSet() bool { return f.mode != filterUnset }

// IsAll reports whether the filter is the All sentinel.
func (f CategoryFilter) IsAll() bool { return f.mode == filterAll }

// Category returns the selected category when the filter targets exactly one.
func (f CategoryFilter) Category() (Category, bool) {
	return f.category, f.mode == filterOne
}

// Label returns the form value that reproduces this filter.
func (f CategoryFilter) Label() string {
	switch f.mode {
	case filterAll:
		return AllLabel
	case filterOne:
		return string(f.category)
	default:
		return ""
	}
}
