// Package taxonomy holds the closed vocabularies used to describe exercises.
package taxonomy

import (
	"slices"
	"strings"
)

var Categories = []string{
	"push",
	"pull",
	"legs",
	"core",
	"conditioning",
}

var Equipment = []string{
	"barbell",
	"dumbbell",
	"kettlebell",
	"bodyweight",
	"machine",
}

var Muscles = []string{
	"chest",
	"shoulders",
	"triceps",
	"biceps",
	"lats",
	"upper_back",
	"lower_back",
	"core",
	"quads",
	"hamstrings",
	"glutes",
	"calves",
	"full_body",
}

var separators = strings.NewReplacer(" ", "_", "-", "_", "/", "_")

// Normalize lower-cases a term and folds spaces, hyphens and slashes to
// underscores so "Upper Back" and "upper-back" both become "upper_back".
func Normalize(term string) string {
	return separators.Replace(strings.ToLower(strings.TrimSpace(term)))
}

func IsCategory(term string) bool {
	return slices.Contains(Categories, term)
}

func IsEquipment(term string) bool {
	return slices.Contains(Equipment, term)
}

func IsMuscle(term string) bool {
	return slices.Contains(Muscles, term)
}

// NormalizeMuscles normalises each entry and drops repeats, keeping the
// first occurrence. Entries outside the vocabulary are returned separately.
func NormalizeMuscles(terms []string) (muscles []string, invalid []string) {
	seen := make(map[string]bool, len(terms))
	for _, raw := range terms {
		term := Normalize(raw)
		if !IsMuscle(term) {
			invalid = append(invalid, raw)
			continue
		}
		if seen[term] {
			continue
		}
		seen[term] = true
		muscles = append(muscles, term)
	}
	return muscles, invalid
}
