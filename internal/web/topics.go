package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"studydesk/internal/desk"
	"studydesk/internal/tabular"
)

type topicsVM struct {
	Notice          string
	Categories      []desk.Category
	AllLabel        string
	DefaultResource string

	Counts []desk.CategoryCount
	Topics []*desk.Topic

	CategoryFilter string
	ByCategory     desk.TopicResult
	NameQuery      string
	ByName         desk.TopicResult
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vm := topicsVM{
		Notice:          strings.TrimSpace(q.Get("notice")),
		Categories:      desk.Categories(),
		AllLabel:        desk.AllLabel,
		DefaultResource: desk.DefaultResource,
		NameQuery:       strings.TrimSpace(q.Get("q")),
	}

	filter, err := desk.ParseCategoryFilter(q.Get("category"))
	if err != nil {
		vm.Notice = err.Error()
		filter = desk.NoCategoryFilter()
	}
	vm.CategoryFilter = filter.Label()

	if vm.ByCategory, err = s.topics.FilterByCategory(filter); err != nil {
		s.serverError(w, r, err)
		return
	}
	if vm.ByName, err = s.topics.FilterByName(vm.NameQuery); err != nil {
		s.serverError(w, r, err)
		return
	}
	if vm.Topics, err = s.topics.ListTopics(); err != nil {
		s.serverError(w, r, err)
		return
	}
	if vm.Counts, err = s.topics.CategoryCounts(); err != nil {
		s.serverError(w, r, err)
		return
	}

	s.writeHTMLTemplate(w, "topics.html", vm)
}

func (s *Server) handleTopicAdd(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	category := desk.Category(strings.TrimSpace(r.FormValue("category")))
	resource := r.FormValue("resource")
	back := url.Values{"category": {string(category)}}

	var added *desk.Topic
	err := s.recorder.Record("topic add", name, func() error {
		var err error
		added, err = s.topics.AddTopic(name, category, resource)
		return err
	})
	success := ""
	if added != nil {
		success = fmt.Sprintf("Added %q to %s at position %d", added.Name, added.Category, added.Position)
	}
	s.finishMutation(w, r, "/topics", back, success, err)
}

func (s *Server) handleTopicRemove(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))

	var removed *desk.Topic
	err := s.recorder.Record("topic rm", name, func() error {
		var err error
		removed, err = s.topics.RemoveTopic(name)
		return err
	})
	success, back := "", url.Values{}
	if removed != nil {
		success = fmt.Sprintf("Removed %q", removed.Name)
		back.Set("category", string(removed.Category))
	}
	s.finishMutation(w, r, "/topics", back, success, err)
}

func (s *Server) handleTopicMove(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	position, err := strconv.Atoi(strings.TrimSpace(r.FormValue("position")))
	if err != nil {
		redirectWithNotice(w, r, "/topics", fmt.Sprintf("%v: %q is not a number", desk.ErrInvalidPosition, r.FormValue("position")), nil)
		return
	}

	var moved *desk.Topic
	err = s.recorder.Record("topic mv", fmt.Sprintf("%s %d", name, position), func() error {
		var err error
		moved, err = s.topics.MoveTopic(name, position)
		return err
	})
	success, back := "", url.Values{}
	if moved != nil {
		success = fmt.Sprintf("Moved %q to position %d", moved.Name, moved.Position)
		back.Set("category", string(moved.Category))
	}
	s.finishMutation(w, r, "/topics", back, success, err)
}

func (s *Server) handleTopicImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		redirectWithNotice(w, r, "/topics", "Upload failed: "+err.Error(), nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		redirectWithNotice(w, r, "/topics", "Choose a CSV file to import", nil)
		return
	}
	defer file.Close()

	rows, err := tabular.ReadTopics(file)
	if err != nil {
		redirectWithNotice(w, r, "/topics", "Import failed: "+err.Error(), nil)
		return
	}

	var (
		imported int
		skipped  []*desk.RowError
	)
	err = s.recorder.Record("topic import", header.Filename, func() error {
		var err error
		imported, skipped, err = s.topics.ReplaceTopics(rows)
		return err
	})
	success := fmt.Sprintf("Imported %d topics", imported)
	if len(skipped) > 0 {
		success += fmt.Sprintf(", skipped %d rows (first: %v)", len(skipped), skipped[0])
	}
	s.finishMutation(w, r, "/topics", url.Values{"category": {desk.AllLabel}}, success, err)
}

func (s *Server) handleTopicExport(w http.ResponseWriter, r *http.Request) {
	topics, err := s.topics.ListTopics()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	attachment(w, "topics.csv")
	if err := tabular.WriteTopics(w, topics); err != nil {
		s.logger.Error("writing topic export", "error", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
