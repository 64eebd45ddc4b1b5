package util

import (
	"errors"
	"strings"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
)

var ErrWrongArgs = errors.New("ERR wrong number of arguments")

func ValidateArgs(args []models.Value, count int) error {
	if len(args) != count {
		return ErrWrongArgs
	}
	return nil
}

func ValidateMinArgs(args []models.Value, minCount int) error {
	if len(args) < minCount {
		return ErrWrongArgs
	}
	return nil
}

// ValidateKeyValue checks that args start with a non-blank key and, when
// withValue is set, a non-blank value.
func ValidateKeyValue(args []models.Value, withValue bool) error {
	if len(args) < 1 || strings.TrimSpace(args[0].Bulk) == "" {
		return models.ErrEmptyKey
	}
	if withValue && (len(args) < 2 || strings.TrimSpace(args[1].Bulk) == "") {
		return models.ErrEmptyValue
	}
	return nil
}
