package resp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
)

// Writer encodes values into a buffer. Call Flush to push them to the
// underlying writer.
type Writer struct {
	wr *bufio.Writer
}

func NewWriter(wr io.Writer) *Writer {
	return &Writer{wr: bufio.NewWriter(wr)}
}

func (w *Writer) Write(v models.Value) error {
	switch v.Type {
	case "string":
		return w.line('+', v.Str)
	case "error":
		return w.line('-', v.Str)
	case "integer":
		return w.line(':', strconv.Itoa(v.Num))
	case "bulk":
		if err := w.line('$', strconv.Itoa(len(v.Bulk))); err != nil {
			return err
		}
		return w.raw(v.Bulk)
	case "null":
		return w.line('$', "-1")
	case "array":
		if err := w.line('*', strconv.Itoa(len(v.Array))); err != nil {
			return err
		}
		for _, item := range v.Array {
			if err := w.Write(item); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("resp: unknown type %q", v.Type)
	}
}

func (w *Writer) Flush() error {
	return w.wr.Flush()
}

func (w *Writer) line(prefix byte, s string) error {
	if err := w.wr.WriteByte(prefix); err != nil {
		return err
	}
	return w.raw(s)
}

func (w *Writer) raw(s string) error {
	if _, err := w.wr.WriteString(s); err != nil {
		return err
	}
	_, err := w.wr.WriteString("\r\n")
	return err
}

// Size returns the number of bytes Write produces for v.
func Size(v models.Value) int {
	line := func(s string) int { return 1 + len(s) + 2 }
	switch v.Type {
	case "string", "error":
		return line(v.Str)
	case "integer":
		return line(strconv.Itoa(v.Num))
	case "bulk":
		return line(strconv.Itoa(len(v.Bulk))) + len(v.Bulk) + 2
	case "null":
		return line("-1")
	case "array":
		n := line(strconv.Itoa(len(v.Array)))
		for _, item := range v.Array {
			n += Size(item)
		}
		return n
	default:
		return 0
	}
}
