package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleForm struct {
	Name     string   `form:"display_name" validate:"required,min=1,max=5"`
	Timezone string   `form:"timezone" validate:"required,timezone"`
	Theme    string   `form:"theme" validate:"oneof=light dark system"`
	Tags     []string `form:"tags" validate:"dive,max=3"`
	Reps     int      `form:"reps" validate:"gte=1"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("Should accept a valid struct", func(t *testing.T) {
		fields := ValidateStruct(sampleForm{Name: "Lisa", Timezone: "Europe/London", Theme: "dark", Tags: []string{"abc"}, Reps: 1})
		assert.False(t, fields.HasErrors())
	})

	t.Run("Should report each failing field by form name", func(t *testing.T) {
		fields := ValidateStruct(sampleForm{Name: "too long name", Timezone: "Mars/Olympus", Theme: "neon", Tags: []string{"ok", "toolong"}, Reps: 0})

		assert.Equal(t, "display_name must be at most 5 characters", fields["display_name"])
		assert.Equal(t, "timezone must be a valid IANA timezone", fields["timezone"])
		assert.Contains(t, fields["theme"], "must be one of")
		assert.Contains(t, fields, "tags")
		assert.Equal(t, "reps must be at least 1", fields["reps"])
	})
}

func TestIsTimezone(t *testing.T) {
	assert.True(t, IsTimezone("Europe/London"))
	assert.True(t, IsTimezone("UTC"))
	assert.False(t, IsTimezone(""))
	assert.False(t, IsTimezone("Local"))
	assert.False(t, IsTimezone("Not/AZone"))
}
