package util

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
)

func TestValidateArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []models.Value
		count   int
		wantErr bool
	}{
		{name: "exact", args: []models.Value{{}, {}}, count: 2},
		{name: "too few", args: []models.Value{{}}, count: 2, wantErr: true},
		{name: "too many", args: []models.Value{{}, {}, {}}, count: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArgs(tt.args, tt.count)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrWrongArgs)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMinArgs(t *testing.T) {
	assert.NoError(t, ValidateMinArgs(models.Bulks("city", "vil", "MAX").Array, 2))
	assert.ErrorIs(t, ValidateMinArgs(nil, 1), ErrWrongArgs)
}

func TestValidateKeyValue(t *testing.T) {
	tests := []struct {
		name      string
		args      []models.Value
		withValue bool
		wantErr   error
	}{
		{name: "key only", args: models.Bulks("city").Array},
		{name: "key and value", args: models.Bulks("city", "Vilnius").Array, withValue: true},
		{name: "no args", args: nil, wantErr: models.ErrEmptyKey},
		{name: "blank key", args: models.Bulks("  ", "Vilnius").Array, withValue: true, wantErr: models.ErrEmptyKey},
		{name: "missing value", args: models.Bulks("city").Array, withValue: true, wantErr: models.ErrEmptyValue},
		{name: "blank value", args: models.Bulks("city", " ").Array, withValue: true, wantErr: models.ErrEmptyValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKeyValue(tt.args, tt.withValue)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
