// Package alias maps caller-facing field identifiers onto the canonical keys
// the suggestion store is organised by.
//
// Route fields exist in several legacy spellings (route_from_city,
// loading_city, ...). All of them collapse onto one canonical key so that a
// city typed on a loading address is offered again on an unloading address.
// A canonical key may also pull in related keys whose values are merged into
// the same suggestion list.
package alias

import (
	"strings"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
)

// DefaultKey is the group used for blank field identifiers.
const DefaultKey = "general"

// Table is the static alias data.
type Table struct {
	// Aliases maps a field identifier to its canonical key.
	Aliases map[string]string
	// Groups lists, per canonical key, the keys queried together. The first
	// entry receives committed values.
	Groups map[string][]string
}

// DefaultTable returns the aliases used by the order, carrier and partner forms.
func DefaultTable() Table {
	return Table{
		Aliases: map[string]string{
			"route_from_city":       "city",
			"route_to_city":         "city",
			"loading_city":          "city",
			"unloading_city":        "city",
			"route_from_country":    "country",
			"route_to_country":      "country",
			"loading_country":       "country",
			"unloading_country":     "country",
			"route_from_address":    "address",
			"route_to_address":      "address",
			"loading_address":       "address",
			"unloading_address":     "address",
			"cargo":                 "cargo_description",
			"cargo_description":     "cargo_description",
			"cargo_type":            "cargo_type",
			"vehicle":               "vehicle_type",
			"vehicle_type":          "vehicle_type",
			"truck_type":            "vehicle_type",
			"contact":               "contact_name",
			"contact_name":          "contact_name",
			"sender_contact_name":   "contact_name",
			"receiver_contact_name": "contact_name",
			"carrier_contact_name":  "contact_name",
			"notes":                 "notes",
			"order_notes":           "notes",
			"carrier_notes":         "notes",
		},
		Groups: map[string][]string{
			"cargo_description": {"cargo_description", "cargo_type"},
			"notes":             {"notes", "remarks"},
			"country":           {"route_from_country", "route_to_country"},
		},
	}
}

// Resolver resolves field identifiers to field groups. It is safe for
// concurrent use; the table is never modified after construction.
type Resolver struct {
	aliases map[string]string
	groups  map[string]models.FieldGroup
}

// NewResolver builds a resolver from table. Keys are normalised to trimmed
// lower case and every group is deduplicated while keeping declaration order.
func NewResolver(table Table) *Resolver {
	r := &Resolver{
		aliases: make(map[string]string, len(table.Aliases)),
		groups:  make(map[string]models.FieldGroup, len(table.Groups)),
	}
	for field, key := range table.Aliases {
		k := normalizeID(key)
		if k == "" {
			continue
		}
		r.aliases[normalizeID(field)] = k
	}
	for key, members := range table.Groups {
		k := normalizeID(key)
		if k == "" {
			continue
		}
		keys := make([]string, 0, len(members)+1)
		keys = append(keys, k)
		for _, m := range members {
			m = normalizeID(m)
			if canonical, ok := r.aliases[m]; ok {
				m = canonical
			}
			keys = append(keys, m)
		}
		r.groups[k] = dedupe(keys)
	}
	return r
}

// Merge returns a table holding base overlaid with extra.
func Merge(base, extra Table) Table {
	out := Table{
		Aliases: make(map[string]string, len(base.Aliases)+len(extra.Aliases)),
		Groups:  make(map[string][]string, len(base.Groups)+len(extra.Groups)),
	}
	for k, v := range base.Aliases {
		out.Aliases[k] = v
	}
	for k, v := range extra.Aliases {
		out.Aliases[k] = v
	}
	for k, v := range base.Groups {
		out.Groups[k] = v
	}
	for k, v := range extra.Groups {
		out.Groups[k] = v
	}
	return out
}

// Resolve returns the group for fieldID. It never fails: unknown identifiers
// resolve to a group holding just themselves.
func (r *Resolver) Resolve(fieldID string) models.FieldGroup {
	id := normalizeID(fieldID)
	if id == "" {
		id = DefaultKey
	}
	key, ok := r.aliases[id]
	if !ok {
		key = id
	}
	if group, ok := r.groups[key]; ok {
		out := make(models.FieldGroup, len(group))
		copy(out, group)
		return out
	}
	return models.FieldGroup{key}
}

// Canonical returns the primary key for fieldID.
func (r *Resolver) Canonical(fieldID string) string {
	return r.Resolve(fieldID).Primary()
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// dedupe keeps the first occurrence of each key.
func dedupe(keys []string) models.FieldGroup {
	seen := make(map[string]bool, len(keys))
	out := make(models.FieldGroup, 0, len(keys))
	for _, k := range keys {
		k = normalizeID(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
