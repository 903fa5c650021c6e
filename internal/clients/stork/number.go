package stork

import (
	"bytes"
	"fmt"
	"strconv"
)

// number принимает JSON-число или строку с числом. null и "" — пустое значение.
type number struct {
	raw   string
	valid bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = number{}
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return fmt.Errorf("number: %w", err)
		}
		b = bytes.TrimSpace([]byte(s))
		if len(b) == 0 {
			*n = number{}
			return nil
		}
	}

	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("number: %q is not numeric", b)
	}

	*n = number{raw: string(b), valid: true}
	return nil
}

func (n number) Float64() float64 {
	if !n.valid {
		return 0
	}
	f, _ := strconv.ParseFloat(n.raw, 64)
	return f
}

// Int64 сохраняет точность целых значений вроде наносекундных меток.
func (n number) Int64() int64 {
	if !n.valid {
		return 0
	}
	if i, err := strconv.ParseInt(n.raw, 10, 64); err == nil {
		return i
	}
	f, _ := strconv.ParseFloat(n.raw, 64)
	return int64(f)
}
