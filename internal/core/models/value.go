package models

import "fmt"

// Value is a RESP value. The journal stores every accepted save as an array of bulk strings.
type Value struct {
	Type  string
	Str   string
	Num   int
	Bulk  string
	Array []Value
}

func (v Value) String() string {
	switch v.Type {
	case "string":
		return fmt.Sprintf("String: %s", v.Str)
	case "error":
		return fmt.Sprintf("Error: %s", v.Str)
	case "integer":
		return fmt.Sprintf("Integer: %d", v.Num)
	case "bulk":
		return fmt.Sprintf("Bulk: %s", v.Bulk)
	case "null":
		return "Null"
	case "array":
		return fmt.Sprintf("Array: %v", v.Array)
	default:
		return fmt.Sprintf("Unknown Type: %s", v.Type)
	}
}

func (v Value) IsCommand(cmd string) bool {
	return v.Type == "array" && len(v.Array) > 0 && v.Array[0].Bulk == cmd
}

// Bulks builds an array value of bulk strings.
func Bulks(parts ...string) Value {
	arr := make([]Value, len(parts))
	for i, p := range parts {
		arr[i] = Value{Type: "bulk", Bulk: p}
	}
	return Value{Type: "array", Array: arr}
}
