// Package seed loads the embedded demo and test datasets into a user's
// partition.
package seed

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"elbiefit/application/ports"
	"elbiefit/domain/keys"
	"elbiefit/domain/models"
)

const (
	DatasetDemo = "demo"
	DatasetTest = "test"
)

//go:embed data/*.yaml
var files embed.FS

// Dataset is one embedded YAML file
type Dataset struct {
	Name      string         `yaml:"-"`
	Profile   ProfileSeed    `yaml:"profile"`
	Exercises []ExerciseSeed `yaml:"exercises"`
	Workouts  []WorkoutSeed  `yaml:"workouts"`
}

type ProfileSeed struct {
	DisplayName string `yaml:"display_name"`
	Email       string `yaml:"email"`
	Timezone    string `yaml:"timezone"`
}

type ExerciseSeed struct {
	Key       string   `yaml:"key"`
	Name      string   `yaml:"name"`
	Muscles   []string `yaml:"muscles"`
	Equipment string   `yaml:"equipment"`
	Category  string   `yaml:"category"`
}

type WorkoutSeed struct {
	ID    string    `yaml:"id"`
	Date  string    `yaml:"date"`
	Name  string    `yaml:"name"`
	Tags  []string  `yaml:"tags"`
	Notes string    `yaml:"notes"`
	Sets  []SetSeed `yaml:"sets"`
}

type SetSeed struct {
	Exercise string `yaml:"exercise"`
	Reps     int    `yaml:"reps"`
	WeightKG string `yaml:"weight_kg"`
	RPE      int    `yaml:"rpe"`
}

// Load parses an embedded dataset by name
func Load(name string) (*Dataset, error) {
	raw, err := files.ReadFile("data/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown dataset %q", name)
	}
	ds := &Dataset{Name: name}
	if err := yaml.Unmarshal(raw, ds); err != nil {
		return nil, fmt.Errorf("parse dataset %q: %w", name, err)
	}
	return ds, nil
}

// ExerciseID is stable per dataset and exercise key, so reseeding
// overwrites the same rows
func ExerciseID(dataset, key string) string {
	return uuid.NewSHA1(uuid.Nil, []byte(dataset+"-"+key)).String()
}

// Summary counts what a seed run wrote
type Summary struct {
	Exercises int
	Workouts  int
	Sets      int
}

type Seeder struct {
	profiles  ports.ProfileRepository
	exercises ports.ExerciseRepository
	workouts  ports.WorkoutRepository
	now       ports.Clock
	logger    *zap.Logger
}

func NewSeeder(profiles ports.ProfileRepository, exercises ports.ExerciseRepository, workouts ports.WorkoutRepository, logger *zap.Logger, clock ports.Clock) *Seeder {
	if clock == nil {
		clock = time.Now
	}
	return &Seeder{
		profiles:  profiles,
		exercises: exercises,
		workouts:  workouts,
		now:       clock,
		logger:    logger,
	}
}

// Seed writes the dataset's profile, exercises, workouts and sets for
// userSub. Existing rows with the same keys are overwritten; nothing is
// deleted.
func (s *Seeder) Seed(ctx context.Context, userSub string, ds *Dataset) (Summary, error) {
	var summary Summary
	now := s.now().UTC()

	profile := models.NewProfile(userSub, ds.Profile.DisplayName, ds.Profile.Email, ds.Profile.Timezone, now)
	if err := s.profiles.SaveProfile(ctx, profile); err != nil {
		return summary, err
	}

	ids := make(map[string]string, len(ds.Exercises))
	for _, e := range ds.Exercises {
		id := ExerciseID(ds.Name, e.Key)
		ids[e.Key] = id
		exercise := models.NewExercise(userSub, id, e.Name, e.Muscles, e.Equipment, e.Category, now)
		if err := s.exercises.SaveExercise(ctx, exercise); err != nil {
			return summary, fmt.Errorf("exercise %s: %w", e.Key, err)
		}
		summary.Exercises++
	}

	for _, w := range ds.Workouts {
		workout, sets, err := buildWorkout(userSub, w, ids, now)
		if err != nil {
			return summary, err
		}
		if err := s.workouts.ImportWorkout(ctx, workout, sets); err != nil {
			return summary, fmt.Errorf("workout %s: %w", w.ID, err)
		}
		summary.Workouts++
		summary.Sets += len(sets)
	}

	s.logger.Info("Seeded dataset",
		zap.String("dataset", ds.Name),
		zap.String("user_sub", userSub),
		zap.Int("exercises", summary.Exercises),
		zap.Int("workouts", summary.Workouts),
		zap.Int("sets", summary.Sets),
	)
	return summary, nil
}

func buildWorkout(userSub string, w WorkoutSeed, exerciseIDs map[string]string, now time.Time) (*models.Workout, []*models.WorkoutSet, error) {
	date, err := keys.ParseDate(w.Date)
	if err != nil {
		return nil, nil, fmt.Errorf("workout %s: %w", w.ID, err)
	}
	workout := models.NewWorkout(userSub, date, w.ID, w.Name, now)
	workout.Tags = w.Tags
	workout.Notes = w.Notes

	sets := make([]*models.WorkoutSet, 0, len(w.Sets))
	for i, s := range w.Sets {
		exerciseID, ok := exerciseIDs[s.Exercise]
		if !ok {
			return nil, nil, fmt.Errorf("workout %s: unknown exercise %q", w.ID, s.Exercise)
		}
		in := models.SetInput{Reps: s.Reps}
		if s.WeightKG != "" {
			weight, err := decimal.NewFromString(s.WeightKG)
			if err != nil {
				return nil, nil, fmt.Errorf("workout %s set %d: %w", w.ID, i+1, err)
			}
			in.WeightKG = &weight
		}
		if s.RPE > 0 {
			rpe := s.RPE
			in.RPE = &rpe
		}
		// Creation order drives display order, so keep the file order.
		created := now.Add(time.Duration(i) * time.Millisecond)
		sets = append(sets, models.NewWorkoutSet(userSub, date, w.ID, i+1, exerciseID, in, created))
	}
	return workout, sets, nil
}

// SeedDataset loads the named embedded dataset and seeds it for userSub
func (s *Seeder) SeedDataset(ctx context.Context, userSub, name string) (Summary, error) {
	ds, err := Load(name)
	if err != nil {
		return Summary{}, err
	}
	return s.Seed(ctx, userSub, ds)
}

// SeedDemo restores the demo dataset for userSub
func (s *Seeder) SeedDemo(ctx context.Context, userSub string) error {
	_, err := s.SeedDataset(ctx, userSub, DatasetDemo)
	return err
}
