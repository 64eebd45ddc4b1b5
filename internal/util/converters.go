package util

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
)

var OK = models.Value{Type: "string", Str: "OK"}

func ParseInt(v models.Value) (int, error) {
	return strconv.Atoi(v.Bulk)
}

func ParseBool(v models.Value) (bool, error) {
	return strconv.ParseBool(v.Bulk)
}

// ErrorValue renders err as a RESP error reply with the ERR prefix.
func ErrorValue(err error) models.Value {
	msg := err.Error()
	if !strings.HasPrefix(msg, "ERR ") {
		msg = "ERR " + msg
	}
	return models.Value{Type: "error", Str: msg}
}

func ToValue(val interface{}) models.Value {
	switch v := val.(type) {
	case string:
		return models.Value{Type: "bulk", Bulk: v}
	case int:
		return models.Value{Type: "integer", Num: v}
	case bool:
		if v {
			return models.Value{Type: "integer", Num: 1}
		}
		return models.Value{Type: "integer", Num: 0}
	case nil:
		return models.Value{Type: "null"}
	case error:
		return ErrorValue(v)
	case []string:
		return models.Bulks(v...)
	default:
		return models.Value{Type: "error", Str: fmt.Sprintf("ERR unknown type: %T", val)}
	}
}
