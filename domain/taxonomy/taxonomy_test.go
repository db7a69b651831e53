package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Upper Back", "upper_back"},
		{" lower-back ", "lower_back"},
		{"FULL/BODY", "full_body"},
		{"chest", "chest"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeMuscles(t *testing.T) {
	t.Run("Should dedupe preserving first occurrence order", func(t *testing.T) {
		muscles, invalid := NormalizeMuscles([]string{"Glutes", "quads", "glutes", "Upper Back"})

		assert.Equal(t, []string{"glutes", "quads", "upper_back"}, muscles)
		assert.Empty(t, invalid)
	})

	t.Run("Should report entries outside the vocabulary", func(t *testing.T) {
		muscles, invalid := NormalizeMuscles([]string{"chest", "wings"})

		assert.Equal(t, []string{"chest"}, muscles)
		assert.Equal(t, []string{"wings"}, invalid)
	})
}

func TestMembership(t *testing.T) {
	assert.True(t, IsEquipment("kettlebell"))
	assert.False(t, IsEquipment("dumbbells"))
	assert.True(t, IsCategory("conditioning"))
	assert.False(t, IsCategory("hinge"))
	assert.True(t, IsMuscle("full_body"))
}
