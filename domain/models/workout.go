package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"elbiefit/domain/keys"
	apperrors "elbiefit/pkg/errors"
	"elbiefit/pkg/utils"
)

// Workout is one training session on a calendar date.
type Workout struct {
	PK        string    `json:"-" validate:"-"`
	SK        string    `json:"-" validate:"-"`
	WorkoutID string    `json:"workout_id" validate:"-"`
	Date      time.Time `json:"date" validate:"-"`
	Name      string    `json:"name" validate:"required,min=1,max=100"`
	Tags      []string  `json:"tags,omitempty" validate:"omitempty,dive,min=1,max=50"`
	Notes     string    `json:"notes,omitempty" validate:"max=2000"`
	CreatedAt time.Time `json:"created_at" validate:"-"`
	UpdatedAt time.Time `json:"updated_at" validate:"-"`
}

// NewWorkout builds a workout keyed for userSub.
func NewWorkout(userSub string, date time.Time, workoutID, name string, now time.Time) *Workout {
	return &Workout{
		PK:        keys.UserPK(userSub),
		SK:        keys.WorkoutSK(date, workoutID),
		WorkoutID: workoutID,
		Date:      date,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DateString is the ISO date used in URLs and keys.
func (w *Workout) DateString() string {
	return keys.FormatDate(w.Date)
}

// Rekey moves the workout to a new date, keeping its id.
func (w *Workout) Rekey(date time.Time) {
	w.Date = date
	w.SK = keys.WorkoutSK(date, w.WorkoutID)
}

// Normalize trims free text and drops blank tags.
func (w *Workout) Normalize() {
	w.Name = strings.TrimSpace(w.Name)
	w.Notes = strings.TrimSpace(w.Notes)
	w.Tags = cleanTags(w.Tags)
}

func (w *Workout) Validate() error {
	w.Normalize()
	if fields := utils.ValidateStruct(w); fields.HasErrors() {
		return apperrors.NewValidationError(fields)
	}
	return nil
}

type workoutRecord struct {
	PK    string   `dynamodbav:"PK"`
	SK    string   `dynamodbav:"SK"`
	Type  string   `dynamodbav:"type"`
	Date  string   `dynamodbav:"date"`
	Name  string   `dynamodbav:"name"`
	Tags  []string `dynamodbav:"tags,omitempty"`
	Notes string   `dynamodbav:"notes,omitempty"`
	timestamps
}

func (w *Workout) ToItem() (Item, error) {
	return marshal(workoutRecord{
		PK:         w.PK,
		SK:         w.SK,
		Type:       TypeWorkout,
		Date:       keys.FormatDate(w.Date),
		Name:       w.Name,
		Tags:       w.Tags,
		Notes:      w.Notes,
		timestamps: newTimestamps(w.CreatedAt, w.UpdatedAt),
	})
}

func WorkoutFromItem(item Item) (*Workout, error) {
	var rec workoutRecord
	if err := unmarshal(item, &rec); err != nil {
		return nil, err
	}
	skDate, id, err := keys.ParseWorkoutSK(rec.SK)
	if err != nil {
		return nil, err
	}
	date := skDate
	if rec.Date != "" {
		if date, err = keys.ParseDate(rec.Date); err != nil {
			return nil, fmt.Errorf("date: %w", err)
		}
	}
	created, updated, err := rec.timestamps.parse()
	if err != nil {
		return nil, err
	}
	w := &Workout{
		PK:        rec.PK,
		SK:        rec.SK,
		WorkoutID: id,
		Date:      date,
		Name:      rec.Name,
		Tags:      rec.Tags,
		Notes:     rec.Notes,
		CreatedAt: created,
		UpdatedAt: updated,
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// WorkoutSet is one logged set of an exercise within a workout.
type WorkoutSet struct {
	PK         string           `json:"-" validate:"-"`
	SK         string           `json:"-" validate:"-"`
	WorkoutID  string           `json:"workout_id" validate:"-"`
	Date       time.Time        `json:"date" validate:"-"`
	ExerciseID string           `json:"exercise_id" validate:"required"`
	SetNumber  int              `json:"set_number" validate:"gte=1"`
	Reps       int              `json:"reps" validate:"gte=1"`
	WeightKG   *decimal.Decimal `json:"weight_kg,omitempty" validate:"-"`
	RPE        *int             `json:"rpe,omitempty" validate:"omitempty,gte=1,lte=10"`
	CreatedAt  time.Time        `json:"created_at" validate:"-"`
	UpdatedAt  time.Time        `json:"updated_at" validate:"-"`
}

// NewWorkoutSet builds set number n of the given workout from validated input.
func NewWorkoutSet(userSub string, date time.Time, workoutID string, n int, exerciseID string, in SetInput, now time.Time) *WorkoutSet {
	return &WorkoutSet{
		PK:         keys.UserPK(userSub),
		SK:         keys.SetSK(date, workoutID, n),
		WorkoutID:  workoutID,
		Date:       date,
		ExerciseID: exerciseID,
		SetNumber:  n,
		Reps:       in.Reps,
		WeightKG:   in.WeightKG,
		RPE:        in.RPE,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Reparent rekeys the set under another date of the same workout.
func (s *WorkoutSet) Reparent(date time.Time) {
	s.Date = date
	s.SK = keys.SetSK(date, s.WorkoutID, s.SetNumber)
}

// Apply overwrites the editable fields.
func (s *WorkoutSet) Apply(in SetInput, now time.Time) {
	s.Reps = in.Reps
	s.WeightKG = in.WeightKG
	s.RPE = in.RPE
	s.UpdatedAt = now
}

func (s *WorkoutSet) Validate() error {
	fields := utils.ValidateStruct(s)
	if s.WeightKG != nil && s.WeightKG.IsNegative() {
		fields.Add("weight", "weight must be at least 0")
	}
	if s.SK != "" {
		if n, ok := keys.SetNumber(s.SK); !ok || n != s.SetNumber {
			fields.Add("set_number", "set_number does not match the sort key")
		}
	}
	if fields.HasErrors() {
		return apperrors.NewValidationError(fields)
	}
	return nil
}

type setRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	Type       string `dynamodbav:"type"`
	ExerciseID string `dynamodbav:"exercise_id"`
	SetNumber  int    `dynamodbav:"set_number"`
	Reps       int    `dynamodbav:"reps"`
	RPE        *int   `dynamodbav:"rpe,omitempty"`
	timestamps
}

func (s *WorkoutSet) ToItem() (Item, error) {
	item, err := marshal(setRecord{
		PK:         s.PK,
		SK:         s.SK,
		Type:       TypeSet,
		ExerciseID: s.ExerciseID,
		SetNumber:  s.SetNumber,
		Reps:       s.Reps,
		RPE:        s.RPE,
		timestamps: newTimestamps(s.CreatedAt, s.UpdatedAt),
	})
	if err != nil {
		return nil, err
	}
	if s.WeightKG != nil {
		item["weight_kg"] = DecimalValue(*s.WeightKG)
	}
	return item, nil
}

func WorkoutSetFromItem(item Item) (*WorkoutSet, error) {
	var rec setRecord
	if err := unmarshal(item, &rec); err != nil {
		return nil, err
	}
	date, workoutID, n, err := keys.ParseSetSK(rec.SK)
	if err != nil {
		return nil, err
	}
	weight, err := DecimalAttr(item, "weight_kg")
	if err != nil {
		return nil, err
	}
	created, updated, err := rec.timestamps.parse()
	if err != nil {
		return nil, err
	}
	setNumber := rec.SetNumber
	if setNumber == 0 {
		setNumber = n
	}
	s := &WorkoutSet{
		PK:         rec.PK,
		SK:         rec.SK,
		WorkoutID:  workoutID,
		Date:       date,
		ExerciseID: rec.ExerciseID,
		SetNumber:  setNumber,
		Reps:       rec.Reps,
		WeightKG:   weight,
		RPE:        rec.RPE,
		CreatedAt:  created,
		UpdatedAt:  updated,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// WorkoutCreateInput is the "new workout" form.
type WorkoutCreateInput struct {
	Date time.Time `form:"date" validate:"-"`
	Name string    `form:"name" validate:"required,min=1,max=100"`
}

func (in *WorkoutCreateInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	fields := utils.ValidateStruct(in)
	if in.Date.IsZero() {
		fields.Add("date", "date is required")
	}
	if fields.HasErrors() {
		return apperrors.NewValidationError(fields)
	}
	return nil
}

// WorkoutUpdateInput is the "edit workout details" form.
type WorkoutUpdateInput struct {
	Date  time.Time `form:"date" validate:"-"`
	Name  string    `form:"name" validate:"required,min=1,max=100"`
	Notes string    `form:"notes" validate:"max=2000"`
	Tags  []string  `form:"tags" validate:"omitempty,dive,min=1,max=50"`
}

// ParseTags splits the comma separated tag field.
func ParseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return cleanTags(strings.Split(raw, ","))
}

func (in *WorkoutUpdateInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Notes = strings.TrimSpace(in.Notes)
	in.Tags = cleanTags(in.Tags)
	fields := utils.ValidateStruct(in)
	if in.Date.IsZero() {
		fields.Add("date", "date is required")
	}
	if fields.HasErrors() {
		return apperrors.NewValidationError(fields)
	}
	return nil
}

// SetInput carries the editable set fields, with weight already in kg.
type SetInput struct {
	Reps     int              `form:"reps" validate:"gte=1"`
	WeightKG *decimal.Decimal `form:"weight" validate:"-"`
	RPE      *int             `form:"rpe" validate:"omitempty,gte=1,lte=10"`
}

func (in *SetInput) Validate() error {
	fields := utils.ValidateStruct(in)
	if in.WeightKG != nil && in.WeightKG.IsNegative() {
		fields.Add("weight", "weight must be at least 0")
	}
	if fields.HasErrors() {
		return apperrors.NewValidationError(fields)
	}
	return nil
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
