package models

// FieldGroup is the ordered, non-empty set of canonical store keys queried for one field.
type FieldGroup []string

// Primary returns the key that committed values are written to.
func (g FieldGroup) Primary() string {
	if len(g) == 0 {
		return ""
	}
	return g[0]
}

// Contains reports whether key is part of the group.
func (g FieldGroup) Contains(key string) bool {
	for _, k := range g {
		if k == key {
			return true
		}
	}
	return false
}
