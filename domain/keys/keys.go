// Package keys builds and parses the partition and sort keys of the
// single-table layout. Builders never validate their inputs.
package keys

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	UserPrefix      = "USER#"
	WorkoutPrefix   = "WORKOUT#"
	SetPrefix       = "SET#"
	ExercisePrefix  = "EXERCISE#"
	RatePrefix      = "RATE#"
	WindowPrefix    = "WIN#"
	DemoResetPrefix = "DEMO_RESET#"

	ProfileSK   = "PROFILE"
	DemoResetSK = "STATE"

	// DateLayout is the ISO-8601 calendar date embedded in workout keys.
	DateLayout = "2006-01-02"

	// SetNumberWidth is the zero-pad width of set ordinals. Ordinals above
	// 999 no longer sort lexicographically in numeric order.
	SetNumberWidth = 3

	sep = "#"
)

// ErrMalformedKey is returned by the parsers.
var ErrMalformedKey = errors.New("malformed sort key")

func UserPK(userSub string) string {
	return UserPrefix + userSub
}

func WorkoutSK(date time.Time, workoutID string) string {
	return WorkoutPrefix + FormatDate(date) + sep + workoutID
}

// WorkoutSetsPrefix is the sort-key prefix shared by every set of a workout.
func WorkoutSetsPrefix(date time.Time, workoutID string) string {
	return WorkoutSK(date, workoutID) + sep + SetPrefix
}

func SetSK(date time.Time, workoutID string, setNumber int) string {
	return fmt.Sprintf("%s%0*d", WorkoutSetsPrefix(date, workoutID), SetNumberWidth, setNumber)
}

func ExerciseSK(exerciseID string) string {
	return ExercisePrefix + exerciseID
}

func RatePK(clientID string) string {
	return RatePrefix + clientID
}

func WindowSK(windowID int64) string {
	return WindowPrefix + strconv.FormatInt(windowID, 10)
}

func DemoResetPK(userSub string) string {
	return DemoResetPrefix + userSub
}

func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}

// ParseDate reads a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// ParseWorkoutSK extracts the date and workout id from a workout sort key.
func ParseWorkoutSK(sk string) (time.Time, string, error) {
	parts, err := splitWorkout(sk)
	if err != nil {
		return time.Time{}, "", err
	}
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	date, err := ParseDate(parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	return date, parts[1], nil
}

// ParseSetSK extracts the date, workout id and set number from a set sort key.
func ParseSetSK(sk string) (time.Time, string, int, error) {
	parts, err := splitWorkout(sk)
	if err != nil {
		return time.Time{}, "", 0, err
	}
	if len(parts) != 4 || parts[2]+sep != SetPrefix {
		return time.Time{}, "", 0, fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	date, err := ParseDate(parts[0])
	if err != nil {
		return time.Time{}, "", 0, fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	n, err := strconv.Atoi(parts[3])
	if err != nil || n < 1 {
		return time.Time{}, "", 0, fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	return date, parts[1], n, nil
}

// SetNumber returns the ordinal encoded in a set sort key.
func SetNumber(sk string) (int, bool) {
	_, _, n, err := ParseSetSK(sk)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsSetSK reports whether sk has the shape of a set key.
func IsSetSK(sk string) bool {
	return strings.HasPrefix(sk, WorkoutPrefix) && strings.Contains(sk, sep+SetPrefix)
}

// LastSegment returns the text after the final separator, which is the
// entity id for workout and exercise keys.
func LastSegment(sk string) string {
	if i := strings.LastIndex(sk, sep); i >= 0 {
		return sk[i+1:]
	}
	return sk
}

func splitWorkout(sk string) ([]string, error) {
	rest, ok := strings.CutPrefix(sk, WorkoutPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	return strings.Split(rest, sep), nil
}
