package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"elbiefit/application/ports"
	"elbiefit/domain/keys"
	"elbiefit/domain/models"
	"elbiefit/domain/units"
	"elbiefit/interfaces/http/rest/views"
	apperrors "elbiefit/pkg/errors"
)

// WorkoutHandler handles workout pages and metadata edits
type WorkoutHandler struct {
	Responder
	workouts  ports.WorkoutRepository
	exercises ports.ExerciseRepository
	profiles  ports.ProfileRepository
	now       ports.Clock
}

func NewWorkoutHandler(
	resp Responder,
	workouts ports.WorkoutRepository,
	exercises ports.ExerciseRepository,
	profiles ports.ProfileRepository,
	clock ports.Clock,
) *WorkoutHandler {
	if clock == nil {
		clock = time.Now
	}
	return &WorkoutHandler{
		Responder: resp,
		workouts:  workouts,
		exercises: exercises,
		profiles:  profiles,
		now:       clock,
	}
}

type workoutForm struct {
	Date  string
	Name  string
	Tags  string
	Notes string
}

type setRow struct {
	Number       int
	ExerciseName string
	Reps         int
	Weight       string
	RPE          string
	Path         string
}

type setForm struct {
	ExerciseID string
	Reps       string
	Weight     string
	RPE        string
}

// All handles GET /workout/all
func (h *WorkoutHandler) All(w http.ResponseWriter, r *http.Request) {
	sub, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	workouts, err := h.workouts.GetAllForUser(r.Context(), sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "workouts", views.Data{"workouts": workouts})
}

// NewForm handles GET /workout/new-form
func (h *WorkoutHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "new_form", views.Data{
		"form": workoutForm{Date: keys.FormatDate(h.now())},
	})
}

// Create handles POST /workout/create
func (h *WorkoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	sub, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	form := workoutForm{Date: r.PostFormValue("date"), Name: r.PostFormValue("name")}
	in := models.WorkoutCreateInput{Name: form.Name}
	fields := apperrors.FieldErrors{}
	if date, ok := parseFormDate(form.Date, fields); ok {
		in.Date = date
	}
	fields.Merge(apperrors.FieldsOf(in.Validate()))
	if fields.HasErrors() {
		h.record(apperrors.NewValidationError(fields))
		workouts, err := h.workouts.GetAllForUser(r.Context(), sub)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.views.Render(w, r, http.StatusBadRequest, "workouts", views.Data{
			"workouts": workouts,
			"form":     form,
			"errors":   fields,
		})
		return
	}

	workout, err := h.workouts.CreateWorkout(r.Context(), sub, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, workoutPath(workout.Date, workout.WorkoutID), http.StatusSeeOther)
}

// Detail handles GET /workout/{date}/{workoutID}
func (h *WorkoutHandler) Detail(w http.ResponseWriter, r *http.Request) {
	sub, date, workoutID, err := workoutTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	workout, sets, err := h.workouts.GetWorkoutWithSets(r.Context(), sub, date, workoutID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderDetail(w, r, sub, workout, sets)
}

func (h *WorkoutHandler) renderDetail(w http.ResponseWriter, r *http.Request, sub string, workout *models.Workout, sets []*models.WorkoutSet) {
	system, err := unitSystem(r.Context(), h.profiles, sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	exercises, err := h.exercises.GetAllForUser(r.Context(), sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	names := make(map[string]string, len(exercises))
	for _, e := range exercises {
		names[e.ExerciseID] = e.Name
	}

	sort.SliceStable(sets, func(i, j int) bool { return sets[i].CreatedAt.Before(sets[j].CreatedAt) })

	rows := make([]setRow, 0, len(sets))
	for _, s := range sets {
		name, ok := names[s.ExerciseID]
		if !ok {
			name = "Unknown exercise"
		}
		rows = append(rows, setRow{
			Number:       s.SetNumber,
			ExerciseName: name,
			Reps:         s.Reps,
			Weight:       displayWeight(s, system),
			RPE:          optionalInt(s.RPE),
			Path:         fmt.Sprintf("%s/set/%d", workoutPath(workout.Date, workout.WorkoutID), s.SetNumber),
		})
	}

	// The add-set form starts from the last set logged.
	defaults := setForm{}
	if len(sets) > 0 {
		last := sets[len(sets)-1]
		defaults = setForm{
			ExerciseID: last.ExerciseID,
			Reps:       strconv.Itoa(last.Reps),
			Weight:     displayWeight(last, system),
		}
	} else if len(exercises) > 0 {
		defaults.ExerciseID = exercises[0].ExerciseID
	}

	data := unitData(system)
	data["workout"] = workout
	data["sets"] = rows
	data["exercises"] = exercises
	data["set_form"] = defaults
	data["path_date"] = keys.FormatDate(workout.Date)
	data["workout_id"] = workout.WorkoutID
	h.views.Render(w, r, http.StatusOK, "workout_detail", data)
}

// EditMetaForm handles GET /workout/{date}/{workoutID}/edit-meta
func (h *WorkoutHandler) EditMetaForm(w http.ResponseWriter, r *http.Request) {
	sub, date, workoutID, err := workoutTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	workout, _, err := h.workouts.GetWorkoutWithSets(r.Context(), sub, date, workoutID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "edit_meta_form", views.Data{
		"form": workoutForm{
			Date:  keys.FormatDate(workout.Date),
			Name:  workout.Name,
			Tags:  strings.Join(workout.Tags, ", "),
			Notes: workout.Notes,
		},
		"path_date":  keys.FormatDate(workout.Date),
		"workout_id": workout.WorkoutID,
	})
}

// UpdateMeta handles POST /workout/{date}/{workoutID}/meta. A changed date
// moves the workout and tells htmx to navigate to its new URL.
func (h *WorkoutHandler) UpdateMeta(w http.ResponseWriter, r *http.Request) {
	sub, date, workoutID, err := workoutTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	form := workoutForm{
		Date:  r.PostFormValue("date"),
		Name:  r.PostFormValue("name"),
		Tags:  r.PostFormValue("tags"),
		Notes: r.PostFormValue("notes"),
	}
	in := models.WorkoutUpdateInput{Name: form.Name, Notes: form.Notes, Tags: models.ParseTags(form.Tags)}
	fields := apperrors.FieldErrors{}
	if newDate, ok := parseFormDate(form.Date, fields); ok {
		in.Date = newDate
	}
	fields.Merge(apperrors.FieldsOf(in.Validate()))
	if fields.HasErrors() {
		h.record(apperrors.NewValidationError(fields))
		h.views.Render(w, r, http.StatusBadRequest, "edit_meta_form", views.Data{
			"form":       form,
			"errors":     fields,
			"path_date":  keys.FormatDate(date),
			"workout_id": workoutID,
		})
		return
	}

	workout, sets, err := h.workouts.GetWorkoutWithSets(r.Context(), sub, date, workoutID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	workout.Name = in.Name
	workout.Notes = in.Notes
	workout.Tags = in.Tags

	if in.Date.Equal(date) {
		if err := h.workouts.UpdateWorkout(r.Context(), workout); err != nil {
			h.fail(w, r, err)
			return
		}
		h.renderDetail(w, r, sub, workout, sets)
		return
	}

	moved, err := h.workouts.MoveWorkoutDate(r.Context(), sub, workout, in.Date, sets)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("Moved workout",
		zap.String("user_sub", sub),
		zap.String("workout_id", workoutID),
		zap.String("from", keys.FormatDate(date)),
		zap.String("to", keys.FormatDate(moved.Date)),
	)
	w.Header().Set(HeaderRedirect, workoutPath(moved.Date, moved.WorkoutID))
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /workout/{date}/{workoutID}
func (h *WorkoutHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sub, date, workoutID, err := workoutTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.workouts.DeleteWorkoutAndSets(r.Context(), sub, date, workoutID); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/workout/all", http.StatusSeeOther)
}

func workoutTarget(r *http.Request) (string, time.Time, string, error) {
	sub, err := currentUser(r)
	if err != nil {
		return "", time.Time{}, "", err
	}
	date, err := pathDate(r)
	if err != nil {
		return "", time.Time{}, "", err
	}
	workoutID := chi.URLParam(r, "workoutID")
	if workoutID == "" {
		return "", time.Time{}, "", apperrors.NewNotFoundError("Workout")
	}
	return sub, date, workoutID, nil
}

func workoutPath(date time.Time, workoutID string) string {
	return "/workout/" + keys.FormatDate(date) + "/" + workoutID
}

// parseFormDate records a field error for a malformed date. An empty value
// is left to the input's own validation.
func parseFormDate(raw string, fields apperrors.FieldErrors) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	date, err := keys.ParseDate(raw)
	if err != nil {
		fields.Add("date", "enter a valid date (YYYY-MM-DD)")
		return time.Time{}, false
	}
	return date, true
}

func displayWeight(s *models.WorkoutSet, system string) string {
	if s.WeightKG == nil {
		return ""
	}
	return units.Display(*s.WeightKG, system).String()
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
