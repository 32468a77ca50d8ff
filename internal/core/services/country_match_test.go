package services_test

import (
	"testing"

	"github.com/clearborder/duty_engine/internal/core/services"
	"github.com/stretchr/testify/assert"
)

func TestCountryMatcher(t *testing.T) {
	m := services.NewCountryMatcher(nil)

	t.Run("exact match", func(t *testing.T) {
		assert.True(t, m.Match("CN", "CN"))
		assert.False(t, m.Match("CN", "JP"))
	})

	t.Run("ALL wildcard", func(t *testing.T) {
		assert.True(t, m.Match("ALL", "CN"))
		assert.True(t, m.Match("CN", "ALL"))
	})

	t.Run("EU group is symmetric", func(t *testing.T) {
		assert.True(t, m.Match("EU", "DE"))
		assert.True(t, m.Match("DE", "EU"))
		assert.True(t, m.Match("EU", "EU"))
		assert.False(t, m.Match("EU", "GB"))
		assert.False(t, m.Match("CH", "EU"))
	})

	t.Run("custom member list", func(t *testing.T) {
		custom := services.NewCountryMatcher([]string{"XX"})
		assert.True(t, custom.Match("EU", "XX"))
		assert.False(t, custom.Match("EU", "DE"))
	})

	t.Run("MatchAny", func(t *testing.T) {
		assert.True(t, m.MatchAny([]string{"JP", "EU"}, "FR"))
		assert.False(t, m.MatchAny([]string{"JP", "KR"}, "FR"))
		assert.False(t, m.MatchAny(nil, "FR"))
	})
}
