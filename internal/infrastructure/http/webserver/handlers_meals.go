package webserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *WebServer) handleMeals(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	page, err := s.journal.Meals(r.Context(), username, r.URL.Query().Get("page"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "meals", map[string]interface{}{
		"Title": "Meals",
		"Meals": page,
		"Base":  userPath(username, "meals"),
	})
}

func (s *WebServer) handleNewMealPage(w http.ResponseWriter, r *http.Request) {
	s.renderMealForm(w, r, http.StatusOK, "New meal", "new", "")
}

func (s *WebServer) handleAddMeal(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	name := r.PostFormValue("name")

	if _, err := s.journal.AddMeal(r.Context(), username, name); err != nil {
		s.mealFormError(w, r, err, "New meal", "new", name)
		return
	}

	sessionFrom(r).AddFlash(FlashSuccess, msgMealAdded)
	s.redirect(w, r, userPath(username, "meals"))
}

func (s *WebServer) handleEditMealPage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "mealID")
	if !ok {
		return
	}

	meal, err := s.journal.Meal(r.Context(), chi.URLParam(r, "username"), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.renderMealForm(w, r, http.StatusOK, "Edit meal", strconv.FormatInt(id, 10)+"/edit", meal.Name)
}

func (s *WebServer) handleUpdateMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "mealID")
	if !ok {
		return
	}
	username := chi.URLParam(r, "username")
	name := r.PostFormValue("name")

	if err := s.journal.UpdateMeal(r.Context(), username, id, name); err != nil {
		s.mealFormError(w, r, err, "Edit meal", strconv.FormatInt(id, 10)+"/edit", name)
		return
	}

	sessionFrom(r).AddFlash(FlashSuccess, msgMealUpdated)
	s.redirect(w, r, userPath(username, "meals"))
}

func (s *WebServer) handleDeleteMeal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "mealID")
	if !ok {
		return
	}
	username := chi.URLParam(r, "username")

	if err := s.journal.DeleteMeal(r.Context(), username, id); err != nil {
		s.handleError(w, r, err)
		return
	}

	sessionFrom(r).AddFlash(FlashSuccess, msgMealDeleted)
	s.redirect(w, r, userPath(username, "meals"))
}

func (s *WebServer) mealFormError(w http.ResponseWriter, r *http.Request, err error, heading, action, name string) {
	msg, ok := formMessage(err)
	if !ok {
		s.handleError(w, r, err)
		return
	}
	sessionFrom(r).AddFlash(FlashError, msg)
	s.renderMealForm(w, r, http.StatusUnprocessableEntity, heading, action, name)
}

func (s *WebServer) renderMealForm(w http.ResponseWriter, r *http.Request, status int, heading, action, name string) {
	base := userPath(chi.URLParam(r, "username"), "meals")
	s.render(w, r, status, "meal_form", map[string]interface{}{
		"Title":   heading,
		"Heading": heading,
		"Action":  base + "/" + action,
		"Back":    base,
		"Name":    name,
	})
}
