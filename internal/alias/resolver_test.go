package alias

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
)

func TestResolve(t *testing.T) {
	r := NewResolver(DefaultTable())

	tests := []struct {
		name    string
		fieldID string
		want    models.FieldGroup
	}{
		{"legacy from city", "route_from_city", models.FieldGroup{"city"}},
		{"legacy to city", "route_to_city", models.FieldGroup{"city"}},
		{"case and spaces", "  Route_From_City ", models.FieldGroup{"city"}},
		{"legacy country aliases collapse", "route_to_country", models.FieldGroup{"country"}},
		{"related group", "cargo", models.FieldGroup{"cargo_description", "cargo_type"}},
		{"unknown identifier", "invoice_remark", models.FieldGroup{"invoice_remark"}},
		{"blank identifier", "   ", models.FieldGroup{DefaultKey}},
		{"canonical key itself", "vehicle_type", models.FieldGroup{"vehicle_type"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.fieldID)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got)
		})
	}
}

func TestResolveReturnsCopy(t *testing.T) {
	r := NewResolver(DefaultTable())
	g := r.Resolve("cargo")
	g[0] = "mutated"
	assert.Equal(t, "cargo_description", r.Canonical("cargo"))
}

func TestMergeOverridesBase(t *testing.T) {
	extra := Table{
		Aliases: map[string]string{"pickup_city": "city", "notes": "remarks"},
		Groups:  map[string][]string{"city": {"city", "town"}},
	}
	r := NewResolver(Merge(DefaultTable(), extra))

	assert.Equal(t, models.FieldGroup{"city", "town"}, r.Resolve("pickup_city"))
	assert.Equal(t, models.FieldGroup{"city", "town"}, r.Resolve("loading_city"))
	assert.Equal(t, models.FieldGroup{"remarks"}, r.Resolve("notes"))
}

func TestGroupsSkipBlankKeys(t *testing.T) {
	r := NewResolver(Table{
		Aliases: map[string]string{"x": " "},
		Groups:  map[string][]string{"a": {"", "b", "A", "b"}},
	})
	assert.Equal(t, models.FieldGroup{"x"}, r.Resolve("x"))
	assert.Equal(t, models.FieldGroup{"a", "b"}, r.Resolve("a"))
}
