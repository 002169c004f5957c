package webserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/macromojo/macromojo/internal/application/journal"
	"github.com/macromojo/macromojo/internal/domain/nutrition"
)

func (s *WebServer) handleOverview(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	overview, err := s.journal.Overview(r.Context(), username, r.URL.Query().Get("page"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "overview", map[string]interface{}{
		"Title":    "Overview",
		"Overview": overview,
		"Base":     userPath(username),
	})
}

func (s *WebServer) handleDay(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	date := chi.URLParam(r, "date")

	day, err := s.journal.Day(r.Context(), username, date, r.URL.Query().Get("page"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "day", map[string]interface{}{
		"Title":    date,
		"Day":      day,
		"DatePath": userPath(username, date),
	})
}

func (s *WebServer) handleNewEntryPage(w http.ResponseWriter, r *http.Request) {
	s.renderEntryForm(w, r, http.StatusOK, "Add entry", "add", journal.EntryForm{})
}

func (s *WebServer) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	date := chi.URLParam(r, "date")
	form := entryForm(r)

	if _, err := s.journal.AddEntry(r.Context(), username, date, form); err != nil {
		s.entryFormError(w, r, err, "Add entry", "add", form)
		return
	}

	sessionFrom(r).AddFlash(FlashSuccess, msgEntryAdded)
	s.redirect(w, r, userPath(username, date))
}

func (s *WebServer) handleEditEntryPage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "entryID")
	if !ok {
		return
	}

	e, ok := s.entryOnDate(w, r, id)
	if !ok {
		return
	}

	s.renderEntryForm(w, r, http.StatusOK, "Edit entry", strconv.FormatInt(id, 10)+"/edit", journal.EntryForm{
		Calories: strconv.Itoa(e.Calories),
		Protein:  strconv.Itoa(e.Protein),
		Fat:      strconv.Itoa(e.Fat),
		Carbs:    strconv.Itoa(e.Carbs),
		Meal:     e.Meal,
	})
}

func (s *WebServer) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "entryID")
	if !ok {
		return
	}
	if _, ok := s.entryOnDate(w, r, id); !ok {
		return
	}
	username := chi.URLParam(r, "username")
	date := chi.URLParam(r, "date")
	form := entryForm(r)

	if err := s.journal.UpdateEntry(r.Context(), username, id, form); err != nil {
		s.entryFormError(w, r, err, "Edit entry", strconv.FormatInt(id, 10)+"/edit", form)
		return
	}

	sessionFrom(r).AddFlash(FlashSuccess, msgEntryUpdated)
	s.redirect(w, r, userPath(username, date))
}

func (s *WebServer) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "entryID")
	if !ok {
		return
	}
	if _, ok := s.entryOnDate(w, r, id); !ok {
		return
	}
	username := chi.URLParam(r, "username")

	if err := s.journal.DeleteEntry(r.Context(), username, id); err != nil {
		s.handleError(w, r, err)
		return
	}

	sessionFrom(r).AddFlash(FlashSuccess, msgEntryDeleted)
	s.redirect(w, r, userPath(username, chi.URLParam(r, "date")))
}

// entryOnDate loads one of the user's entries and answers 404 unless it was
// logged on the day named in the URL
func (s *WebServer) entryOnDate(w http.ResponseWriter, r *http.Request, id int64) (*nutrition.Entry, bool) {
	e, err := s.journal.Entry(r.Context(), chi.URLParam(r, "username"), id)
	if err != nil {
		s.handleError(w, r, err)
		return nil, false
	}
	if e.DateString() != chi.URLParam(r, "date") {
		s.renderError(w, r, http.StatusNotFound, msgNoPage)
		return nil, false
	}
	return e, true
}

func (s *WebServer) entryFormError(w http.ResponseWriter, r *http.Request, err error, heading, action string, form journal.EntryForm) {
	msg, ok := formMessage(err)
	if !ok {
		s.handleError(w, r, err)
		return
	}
	sessionFrom(r).AddFlash(FlashError, msg)
	s.renderEntryForm(w, r, http.StatusUnprocessableEntity, heading, action, form)
}

func (s *WebServer) renderEntryForm(w http.ResponseWriter, r *http.Request, status int, heading, action string, form journal.EntryForm) {
	username := chi.URLParam(r, "username")
	date := chi.URLParam(r, "date")

	meals, err := s.journal.MealNames(r.Context(), username)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.render(w, r, status, "entry_form", map[string]interface{}{
		"Title":    heading,
		"Heading":  heading,
		"Action":   userPath(username, date) + "/" + action,
		"DatePath": userPath(username, date),
		"Date":     date,
		"Form":     form,
		"Meals":    meals,
	})
}

func entryForm(r *http.Request) journal.EntryForm {
	return journal.EntryForm{
		Calories: r.PostFormValue("calories"),
		Protein:  r.PostFormValue("protein"),
		Fat:      r.PostFormValue("fat"),
		Carbs:    r.PostFormValue("carbs"),
		Meal:     r.PostFormValue("meal"),
	}
}

func (s *WebServer) handleTargets(w http.ResponseWriter, r *http.Request) {
	t, err := s.journal.Targets(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "targets", map[string]interface{}{
		"Title":  "Targets",
		"Target": t.Macros,
	})
}

func (s *WebServer) handleEditTargetsPage(w http.ResponseWriter, r *http.Request) {
	t, err := s.journal.Targets(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "targets_edit", map[string]interface{}{
		"Title": "Edit targets",
		"Form":  targetsForm(t.Macros),
	})
}

func (s *WebServer) handleUpdateTargets(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	form := journal.TargetForm{
		Calories: r.PostFormValue("calories"),
		Protein:  r.PostFormValue("protein"),
		Fat:      r.PostFormValue("fat"),
		Carbs:    r.PostFormValue("carbs"),
	}

	if err := s.journal.UpdateTargets(r.Context(), username, form); err != nil {
		msg, ok := formMessage(err)
		if !ok {
			s.handleError(w, r, err)
			return
		}
		sessionFrom(r).AddFlash(FlashError, msg)
		s.render(w, r, http.StatusUnprocessableEntity, "targets_edit", map[string]interface{}{
			"Title": "Edit targets",
			"Form":  form,
		})
		return
	}

	sessionFrom(r).AddFlash(FlashSuccess, msgTargetsUpdated)
	s.redirect(w, r, userPath(username, "targets"))
}

func targetsForm(m nutrition.Macros) journal.TargetForm {
	return journal.TargetForm{
		Calories: strconv.Itoa(m.Calories),
		Protein:  strconv.Itoa(m.Protein),
		Fat:      strconv.Itoa(m.Fat),
		Carbs:    strconv.Itoa(m.Carbs),
	}
}

// idParam parses a numeric URL segment, rendering a 404 when it is not one
func (s *WebServer) idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		s.renderError(w, r, http.StatusNotFound, msgNoPage)
		return 0, false
	}
	return id, true
}
