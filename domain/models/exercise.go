package models

import (
	"fmt"
	"strings"
	"time"

	"elbiefit/domain/keys"
	"elbiefit/domain/taxonomy"
	apperrors "elbiefit/pkg/errors"
	"elbiefit/pkg/utils"
)

// Exercise is an entry in a user's exercise catalogue.
type Exercise struct {
	PK         string    `json:"-" validate:"-"`
	SK         string    `json:"-" validate:"-"`
	ExerciseID string    `json:"exercise_id" validate:"-"`
	Name       string    `json:"name" validate:"required,min=1,max=100"`
	Muscles    []string  `json:"muscles" validate:"required,min=1,dive,min=1,max=50"`
	Equipment  string    `json:"equipment" validate:"required,max=50"`
	Category   string    `json:"category,omitempty" validate:"max=50"`
	CreatedAt  time.Time `json:"created_at" validate:"-"`
	UpdatedAt  time.Time `json:"updated_at" validate:"-"`
}

func NewExercise(userSub, exerciseID, name string, muscles []string, equipment, category string, now time.Time) *Exercise {
	return &Exercise{
		PK:         keys.UserPK(userSub),
		SK:         keys.ExerciseSK(exerciseID),
		ExerciseID: exerciseID,
		Name:       name,
		Muscles:    muscles,
		Equipment:  equipment,
		Category:   category,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate normalises the taxonomy fields in place and checks every field.
func (e *Exercise) Validate() error {
	e.Name = strings.TrimSpace(e.Name)
	e.Equipment = taxonomy.Normalize(e.Equipment)
	e.Category = taxonomy.Normalize(e.Category)

	muscles, invalid := taxonomy.NormalizeMuscles(e.Muscles)

	fields := utils.ValidateStruct(e)
	if len(invalid) > 0 {
		fields["muscles"] = fmt.Sprintf("unknown muscle group: %s", strings.Join(invalid, ", "))
	} else {
		e.Muscles = muscles
	}
	if e.Equipment != "" && !taxonomy.IsEquipment(e.Equipment) {
		fields["equipment"] = fmt.Sprintf("equipment must be one of: %s", strings.Join(taxonomy.Equipment, ", "))
	}
	if e.Category != "" && !taxonomy.IsCategory(e.Category) {
		fields["category"] = fmt.Sprintf("category must be one of: %s", strings.Join(taxonomy.Categories, ", "))
	}
	if fields.HasErrors() {
		return apperrors.NewValidationError(fields)
	}
	return nil
}

type exerciseRecord struct {
	PK        string   `dynamodbav:"PK"`
	SK        string   `dynamodbav:"SK"`
	Type      string   `dynamodbav:"type"`
	Name      string   `dynamodbav:"name"`
	Muscles   []string `dynamodbav:"muscles"`
	Equipment string   `dynamodbav:"equipment"`
	Category  string   `dynamodbav:"category,omitempty"`
	timestamps
}

func (e *Exercise) ToItem() (Item, error) {
	return marshal(exerciseRecord{
		PK:         e.PK,
		SK:         e.SK,
		Type:       TypeExercise,
		Name:       e.Name,
		Muscles:    e.Muscles,
		Equipment:  e.Equipment,
		Category:   e.Category,
		timestamps: newTimestamps(e.CreatedAt, e.UpdatedAt),
	})
}

func ExerciseFromItem(item Item) (*Exercise, error) {
	var rec exerciseRecord
	if err := unmarshal(item, &rec); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(rec.SK, keys.ExercisePrefix) {
		return nil, fmt.Errorf("%w: exercise row with sort key %q", keys.ErrMalformedKey, rec.SK)
	}
	created, updated, err := rec.timestamps.parse()
	if err != nil {
		return nil, err
	}
	e := &Exercise{
		PK:         rec.PK,
		SK:         rec.SK,
		ExerciseID: keys.LastSegment(rec.SK),
		Name:       rec.Name,
		Muscles:    rec.Muscles,
		Equipment:  rec.Equipment,
		Category:   rec.Category,
		CreatedAt:  created,
		UpdatedAt:  updated,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}
