package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Vilnius", "vilnius"},
		{" vilnius ", "vilnius"},
		{"VILNIUS", "vilnius"},
		{"\tKaunas\n", "kaunas"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("Vilnius", ""))
	assert.True(t, Matches("Vilnius", "vil"))
	assert.True(t, Matches("Vilnius", "NIU"))
	assert.True(t, Matches("Vilnius", " vil "))
	assert.False(t, Matches("Kaunas", "vil"))
}

func TestSuggestionDict(t *testing.T) {
	dict := NewSuggestionDict()
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("UpsertCountsUses", func(t *testing.T) {
		dict.Upsert("Vilnius", t0)
		got := dict.Upsert(" vilnius ", t0.Add(time.Minute))
		assert.Equal(t, "Vilnius", got.Value)
		assert.Equal(t, 2, got.UsageCount)
		assert.Equal(t, t0.Add(time.Minute), got.LastUsedAt)
		assert.Equal(t, 1, dict.Len())
	})

	t.Run("FindRanksByUsage", func(t *testing.T) {
		dict.Upsert("Kaunas", t0)
		dict.Upsert("Klaipeda", t0.Add(time.Hour))

		got := dict.Find("city", "", 0)
		assert.Len(t, got, 3)
		assert.Equal(t, "Vilnius", got[0].Value)
		assert.Equal(t, "Klaipeda", got[1].Value)
		assert.Equal(t, "Kaunas", got[2].Value)
		assert.Equal(t, "city", got[0].SourceKey)
	})

	t.Run("FindFiltersAndLimits", func(t *testing.T) {
		got := dict.Find("city", "k", 1)
		assert.Len(t, got, 1)
		assert.Equal(t, "Klaipeda", got[0].Value)
	})

	t.Run("Remove", func(t *testing.T) {
		assert.True(t, dict.Remove("KAUNAS"))
		assert.False(t, dict.Remove("Kaunas"))
		assert.Equal(t, 2, dict.Len())
	})
}

func TestFieldGroupPrimary(t *testing.T) {
	assert.Equal(t, "city", FieldGroup{"city", "town"}.Primary())
	assert.Equal(t, "", FieldGroup{}.Primary())
	assert.True(t, FieldGroup{"city", "town"}.Contains("town"))
	assert.False(t, FieldGroup{"city"}.Contains("country"))
}

func TestRetryStrategyNext(t *testing.T) {
	s := RetryStrategy{MaxInterval: 100 * time.Millisecond, Multiplier: 2}
	assert.Equal(t, 20*time.Millisecond, s.Next(10*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, s.Next(80*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, s.Next(time.Second))
}
