package handlers

import (
	"net/http"

	"elbiefit/application/ports"
	"elbiefit/interfaces/http/rest/views"
)

type ExerciseHandler struct {
	Responder
	exercises ports.ExerciseRepository
}

func NewExerciseHandler(resp Responder, exercises ports.ExerciseRepository) *ExerciseHandler {
	return &ExerciseHandler{Responder: resp, exercises: exercises}
}

// All handles GET /exercise/all
func (h *ExerciseHandler) All(w http.ResponseWriter, r *http.Request) {
	sub, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	exercises, err := h.exercises.GetAllForUser(r.Context(), sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "exercises", views.Data{"exercises": exercises})
}
