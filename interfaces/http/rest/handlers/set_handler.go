package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"elbiefit/application/ports"
	"elbiefit/domain/keys"
	"elbiefit/domain/models"
	"elbiefit/domain/units"
	apperrors "elbiefit/pkg/errors"
)

// SetHandler handles the set fragments of the workout page. Every mutation
// answers 204 and fires workoutSetChanged.
type SetHandler struct {
	Responder
	workouts  ports.WorkoutRepository
	exercises ports.ExerciseRepository
	profiles  ports.ProfileRepository
}

func NewSetHandler(
	resp Responder,
	workouts ports.WorkoutRepository,
	exercises ports.ExerciseRepository,
	profiles ports.ProfileRepository,
) *SetHandler {
	return &SetHandler{
		Responder: resp,
		workouts:  workouts,
		exercises: exercises,
		profiles:  profiles,
	}
}

// Form handles GET /workout/{date}/{workoutID}/set/form
func (h *SetHandler) Form(w http.ResponseWriter, r *http.Request) {
	sub, date, workoutID, err := workoutTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderForm(w, r, http.StatusOK, sub, date, workoutID, setForm{ExerciseID: r.URL.Query().Get("exercise_id")}, nil)
}

func (h *SetHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, sub string, date time.Time, workoutID string, form setForm, fields apperrors.FieldErrors) {
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
	if form.ExerciseID == "" && len(exercises) > 0 {
		form.ExerciseID = exercises[0].ExerciseID
	}

	data := unitData(system)
	data["exercises"] = exercises
	data["set_form"] = form
	data["errors"] = fields
	data["path_date"] = keys.FormatDate(date)
	data["workout_id"] = workoutID
	h.views.Render(w, r, status, "set_form", data)
}

// Add handles POST /workout/{date}/{workoutID}/set/add
func (h *SetHandler) Add(w http.ResponseWriter, r *http.Request) {
	sub, date, workoutID, err := workoutTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	system, err := unitSystem(r.Context(), h.profiles, sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	exerciseID := r.URL.Query().Get("exercise_id")
	if exerciseID == "" {
		exerciseID = r.PostFormValue("exercise_id")
	}
	in, fields := parseSetInput(r, system)
	if exerciseID == "" {
		fields.Add("exercise_id", "choose an exercise")
	}
	if fields.HasErrors() {
		h.record(apperrors.NewValidationError(fields))
		form := formFromRequest(r)
		form.ExerciseID = exerciseID
		h.renderForm(w, r, http.StatusBadRequest, sub, date, workoutID, form, fields)
		return
	}

	set, err := h.workouts.AddSet(r.Context(), sub, date, workoutID, exerciseID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Debug("Added set",
		zap.String("user_sub", sub),
		zap.String("workout_id", workoutID),
		zap.Int("set_number", set.SetNumber),
	)
	trigger(w, EventSetChanged)
}

// EditForm handles GET /workout/{date}/{workoutID}/set/{setNumber}/edit
func (h *SetHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	sub, date, workoutID, err := workoutTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := pathSetNumber(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	set, err := h.workouts.GetSet(r.Context(), sub, date, workoutID, n)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	system, err := unitSystem(r.Context(), h.profiles, sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	form := setForm{
		ExerciseID: set.ExerciseID,
		Reps:       strconv.Itoa(set.Reps),
		Weight:     displayWeight(set, system),
		RPE:        optionalInt(set.RPE),
	}
	h.renderEditForm(w, r, http.StatusOK, system, date, workoutID, n, form, nil)
}

func (h *SetHandler) renderEditForm(w http.ResponseWriter, r *http.Request, status int, system string, date time.Time, workoutID string, n int, form setForm, fields apperrors.FieldErrors) {
	data := unitData(system)
	data["set_form"] = form
	data["set_number"] = n
	data["errors"] = fields
	data["path_date"] = keys.FormatDate(date)
	data["workout_id"] = workoutID
	h.views.Render(w, r, status, "set_edit_form", data)
}

// Edit handles POST /workout/{date}/{workoutID}/set/{setNumber}
func (h *SetHandler) Edit(w http.ResponseWriter, r *http.Request) {
	sub, date, workoutID, err := workoutTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := pathSetNumber(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	system, err := unitSystem(r.Context(), h.profiles, sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	in, fields := parseSetInput(r, system)
	if fields.HasErrors() {
		h.record(apperrors.NewValidationError(fields))
		h.renderEditForm(w, r, http.StatusBadRequest, system, date, workoutID, n, formFromRequest(r), fields)
		return
	}

	if _, err := h.workouts.EditSet(r.Context(), sub, date, workoutID, n, in); err != nil {
		h.fail(w, r, err)
		return
	}
	trigger(w, EventSetChanged)
}

// Delete handles DELETE /workout/{date}/{workoutID}/set/{setNumber}
func (h *SetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sub, date, workoutID, err := workoutTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := pathSetNumber(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.workouts.DeleteSet(r.Context(), sub, date, workoutID, n); err != nil {
		h.fail(w, r, err)
		return
	}
	trigger(w, EventSetChanged)
}

// parseSetInput reads reps, weight and rpe. Weight is entered in the
// user's unit and converted to kilograms.
func parseSetInput(r *http.Request, system string) (models.SetInput, apperrors.FieldErrors) {
	var in models.SetInput
	fields := apperrors.FieldErrors{}

	reps, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("reps")))
	if err != nil {
		fields.Add("reps", "enter a whole number of reps")
	}
	in.Reps = reps

	if raw := strings.TrimSpace(r.PostFormValue("weight")); raw != "" {
		weight, err := decimal.NewFromString(raw)
		if err != nil {
			fields.Add("weight", "enter a number")
		} else {
			kg := units.ToKG(weight, system)
			in.WeightKG = &kg
		}
	}

	if raw := strings.TrimSpace(r.PostFormValue("rpe")); raw != "" {
		rpe, err := strconv.Atoi(raw)
		if err != nil {
			fields.Add("rpe", "enter a whole number from 1 to 10")
		} else {
			in.RPE = &rpe
		}
	}

	fields.Merge(apperrors.FieldsOf(in.Validate()))
	return in, fields
}

func formFromRequest(r *http.Request) setForm {
	return setForm{
		Reps:   r.PostFormValue("reps"),
		Weight: r.PostFormValue("weight"),
		RPE:    r.PostFormValue("rpe"),
	}
}
