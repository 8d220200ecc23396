package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studydesk/internal/desk"
	"studydesk/internal/tabular"
)

type revisionsVM struct {
	Notice    string
	Today     string
	Revisions []*desk.Revision
	DueDate   string
	Due       []desk.RevisionMatch
}

func (s *Server) handleRevisions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	today := desk.Today(s.clock)
	vm := revisionsVM{
		Notice: strings.TrimSpace(q.Get("notice")),
		Today:  today.Format(desk.DateLayout),
	}

	date := today
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		parsed, err := desk.ParseDate(raw)
		if err != nil {
			vm.Notice = fmt.Sprintf("Invalid date %q, showing today", raw)
		} else {
			date = parsed
		}
	}
	vm.DueDate = date.Format(desk.DateLayout)

	var err error
	if vm.Due, err = s.revisions.DueOn(date); err != nil {
		s.serverError(w, r, err)
		return
	}
	if vm.Revisions, err = s.revisions.ListRevisions(); err != nil {
		s.serverError(w, r, err)
		return
	}

	s.writeHTMLTemplate(w, "revisions.html", vm)
}

func (s *Server) handleRevisionAdd(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("topic_name"))

	var entry time.Time
	if raw := strings.TrimSpace(r.FormValue("entry_date")); raw != "" {
		parsed, err := desk.ParseDate(raw)
		if err != nil {
			redirectWithNotice(w, r, "/revisions", fmt.Sprintf("Invalid date %q", raw), nil)
			return
		}
		entry = parsed
	}

	var rev *desk.Revision
	err := s.recorder.Record("revision add", name, func() error {
		var err error
		rev, err = s.revisions.AddRevision(name, entry)
		return err
	})
	success := ""
	if rev != nil {
		success = fmt.Sprintf("Scheduled %q, first revision on %s", rev.TopicName, rev.Dates[0].Format(desk.DateLayout))
	}
	s.finishMutation(w, r, "/revisions", nil, success, err)
}

func (s *Server) handleRevisionRemove(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("topic_name"))
	err := s.recorder.Record("revision rm", name, func() error {
		return s.revisions.RemoveRevision(name)
	})
	s.finishMutation(w, r, "/revisions", url.Values{}, fmt.Sprintf("Removed revisions for %q", name), err)
}

func (s *Server) handleRevisionExport(w http.ResponseWriter, r *http.Request) {
	revs, err := s.revisions.ListRevisions()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	attachment(w, "revisions.csv")
	if err := tabular.WriteRevisions(w, revs); err != nil {
		s.logger.Error("writing revision export", "error", err)
	}
}
