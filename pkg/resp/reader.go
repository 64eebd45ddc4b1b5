package resp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
)

// MaxBulkLen caps a single bulk string. Journal entries are short form values,
// so anything larger means the file is corrupt.
const MaxBulkLen = 1 << 20

var (
	ErrMalformedLine = errors.New("resp: malformed line")
	ErrBulkTooLarge  = errors.New("resp: bulk string too large")
)

type Reader struct {
	rd *bufio.Reader
}

func NewReader(rd io.Reader) *Reader {
	return &Reader{rd: bufio.NewReader(rd)}
}

// Read decodes the next value. It returns io.EOF only at a clean value
// boundary; a value cut short returns io.ErrUnexpectedEOF.
func (r *Reader) Read() (models.Value, error) {
	typ, err := r.rd.ReadByte()
	if err != nil {
		return models.Value{}, err
	}

	v, err := r.readTyped(typ)
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return v, err
}

func (r *Reader) readTyped(typ byte) (models.Value, error) {
	switch typ {
	case '+':
		line, err := r.readLine()
		return models.Value{Type: "string", Str: line}, err
	case '-':
		line, err := r.readLine()
		return models.Value{Type: "error", Str: line}, err
	case ':':
		n, err := r.readInt()
		return models.Value{Type: "integer", Num: n}, err
	case '$':
		return r.readBulk()
	case '*':
		return r.readArray()
	default:
		return models.Value{}, fmt.Errorf("resp: unknown type %q", typ)
	}
}

func (r *Reader) readLine() (string, error) {
	line, err := r.rd.ReadString('\n')
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(line, "\r\n") {
		return "", ErrMalformedLine
	}
	return line[:len(line)-2], nil
}

func (r *Reader) readInt() (int, error) {
	line, err := r.readLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	return n, nil
}

func (r *Reader) readBulk() (models.Value, error) {
	n, err := r.readInt()
	if err != nil {
		return models.Value{}, err
	}
	if n == -1 {
		return models.Value{Type: "null"}, nil
	}
	if n < 0 || n > MaxBulkLen {
		return models.Value{}, ErrBulkTooLarge
	}

	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r.rd, buf); err != nil {
		return models.Value{}, err
	}
	if buf[n] != '\r' || buf[n+1] != '\n' {
		return models.Value{}, ErrMalformedLine
	}
	return models.Value{Type: "bulk", Bulk: string(buf[:n])}, nil
}

func (r *Reader) readArray() (models.Value, error) {
	n, err := r.readInt()
	if err != nil {
		return models.Value{}, err
	}
	if n == -1 {
		return models.Value{Type: "null"}, nil
	}
	if n < 0 {
		return models.Value{}, fmt.Errorf("%w: array length %d", ErrMalformedLine, n)
	}

	array := make([]models.Value, 0, n)
	for i := 0; i < n; i++ {
		typ, err := r.rd.ReadByte()
		if err != nil {
			return models.Value{}, err
		}
		v, err := r.readTyped(typ)
		if err != nil {
			return models.Value{}, err
		}
		array = append(array, v)
	}
	return models.Value{Type: "array", Array: array}, nil
}
