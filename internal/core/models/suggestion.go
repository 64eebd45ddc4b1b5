package models

import (
	"sort"
	"strings"
	"time"
)

// Suggestion represents an autocomplete suggestion entry
type Suggestion struct {
	Value      string    `json:"value"`
	UsageCount int       `json:"usage_count,omitempty"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
	SourceKey  string    `json:"-"`
}

// Normalize returns the identity used for deduplication: trimmed and case folded.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Matches reports whether value satisfies query. An empty query matches everything.
func Matches(value, query string) bool {
	q := Normalize(query)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), q)
}

// SuggestionDict represents a dictionary of suggestions stored under one canonical key
type SuggestionDict struct {
	Entries map[string]*Suggestion `json:"entries"`
}

// NewSuggestionDict creates a new suggestion dictionary
func NewSuggestionDict() *SuggestionDict {
	return &SuggestionDict{
		Entries: make(map[string]*Suggestion),
	}
}

// Upsert records a use of value. Existing entries keep their original spelling.
func (d *SuggestionDict) Upsert(value string, at time.Time) Suggestion {
	id := Normalize(value)
	sug, exists := d.Entries[id]
	if !exists {
		sug = &Suggestion{Value: strings.TrimSpace(value)}
		d.Entries[id] = sug
	}
	sug.UsageCount++
	sug.LastUsedAt = at
	return *sug
}

// Remove deletes value from the dictionary.
func (d *SuggestionDict) Remove(value string) bool {
	id := Normalize(value)
	if _, exists := d.Entries[id]; !exists {
		return false
	}
	delete(d.Entries, id)
	return true
}

// Find returns copies of the entries matching query, most used first.
// Ties are broken by recency and then alphabetically so results are stable.
func (d *SuggestionDict) Find(key, query string, max int) []Suggestion {
	matches := make([]Suggestion, 0, len(d.Entries))
	for _, sug := range d.Entries {
		if Matches(sug.Value, query) {
			s := *sug
			s.SourceKey = key
			matches = append(matches, s)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.UsageCount != b.UsageCount {
			return a.UsageCount > b.UsageCount
		}
		if !a.LastUsedAt.Equal(b.LastUsedAt) {
			return a.LastUsedAt.After(b.LastUsedAt)
		}
		return a.Value < b.Value
	})

	if max > 0 && len(matches) > max {
		matches = matches[:max]
	}
	return matches
}

// Len returns the number of distinct entries.
func (d *SuggestionDict) Len() int {
	return len(d.Entries)
}
