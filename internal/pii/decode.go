package pii

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// scalar decodes any JSON value as display text: strings as-is, null as
// empty, and numbers, booleans or nested values as their compact JSON text.
type scalar string

func (s *scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*s = ""
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = scalar(v)
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, b); err != nil {
			return err
		}
		*s = scalar(buf.String())
	}
	return nil
}

// UnmarshalJSON fills the known columns from a row object. Unknown keys are
// ignored and a row that is not an object decodes as an empty row.
func (r *Row) UnmarshalJSON(b []byte) error {
	*r = Row{}

	var fields map[string]scalar
	if json.Unmarshal(b, &fields) != nil {
		return nil
	}
	for _, c := range Columns {
		if v, ok := fields[c.Key]; ok {
			c.set(r, string(v))
		}
	}
	return nil
}

// MarshalJSON writes every column in display order. Counters that hold an
// integer are written as numbers.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		v := c.Value(r)
		if c.Numeric {
			if n, err := strconv.Atoi(v); err == nil && strconv.Itoa(n) == v {
				buf.WriteString(v)
				continue
			}
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the {status, count, rows} envelope or a bare array
// of rows. A missing or non-array rows value is an empty result, and an
// unreadable count is zero.
func (r *Response) UnmarshalJSON(b []byte) error {
	*r = Response{}

	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &r.Rows); err != nil {
			return err
		}
		r.Count = len(r.Rows)
		return nil
	}

	var env struct {
		Status scalar          `json:"status"`
		Count  scalar          `json:"count"`
		Rows   json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}

	r.Status = string(env.Status)
	r.Count, _ = strconv.Atoi(string(env.Count))
	if rows := bytes.TrimSpace(env.Rows); len(rows) > 0 && rows[0] == '[' {
		if err := json.Unmarshal(rows, &r.Rows); err != nil {
			return err
		}
	}
	return nil
}
