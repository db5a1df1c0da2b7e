package slabstore

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	attrString = "string"
	attrFloat  = "float"
	attrInt    = "int"
	attrFloats = "floats"
	attrBytes  = "bytes"
)

// node carries the attribute methods shared by groups and datasets.
type node struct {
	f    *File
	path string
}

// Path returns the object's absolute path.
func (n *node) Path() string { return n.path }

// SetAttr stores a scalar string, float, integer, []float64 or []byte attribute,
// replacing any previous value of the same name.
func (n *node) SetAttr(name string, value interface{}) error {
	if name == "" {
		return fmt.Errorf("%w: empty attribute name", ErrInvalidPath)
	}
	var kind string
	var raw []byte
	switch v := value.(type) {
	case string:
		kind, raw = attrString, []byte(v)
	case float64:
		kind, raw = attrFloat, encodeFloats([]float64{v})
	case float32:
		kind, raw = attrFloat, encodeFloats([]float64{float64(v)})
	case int:
		kind, raw = attrInt, encodeInt(int64(v))
	case int64:
		kind, raw = attrInt, encodeInt(v)
	case int32:
		kind, raw = attrInt, encodeInt(int64(v))
	case uint32:
		kind, raw = attrInt, encodeInt(int64(v))
	case bool:
		var i int64
		if v {
			i = 1
		}
		kind, raw = attrInt, encodeInt(i)
	case []float64:
		kind, raw = attrFloats, encodeFloats(v)
	case []byte:
		kind, raw = attrBytes, append([]byte{}, v...)
	default:
		return fmt.Errorf("unsupported attribute type %T for %s@%s", value, n.path, name)
	}

	db, err := n.f.writeConn()
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT INTO attributes (path, name, kind, value) VALUES (?, ?, ?, ?)
		ON CONFLICT (path, name) DO UPDATE SET kind = excluded.kind, value = excluded.value`,
		n.path, name, kind, raw)
	if err != nil {
		return fmt.Errorf("failed to set %s@%s: %w", n.path, name, err)
	}
	return nil
}

// Attr returns the named attribute.
func (n *node) Attr(name string) (*Attribute, error) {
	db, err := n.f.conn()
	if err != nil {
		return nil, err
	}
	a := &Attribute{Name: name}
	err = db.QueryRow(`SELECT kind, value FROM attributes WHERE path = ? AND name = ?`, n.path, name).Scan(&a.kind, &a.raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: attribute %s@%s", ErrNotFound, n.path, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s@%s: %w", n.path, name, err)
	}
	return a, nil
}

// HasAttr reports whether the named attribute exists.
func (n *node) HasAttr(name string) (bool, error) {
	_, err := n.Attr(name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Attrs lists the attribute names in lexical order.
func (n *node) Attrs() ([]string, error) {
	db, err := n.f.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(`SELECT name FROM attributes WHERE path = ? ORDER BY name`, n.path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		names = append(names, s)
	}
	return names, rows.Err()
}

// Attribute is a typed value attached to a group or dataset.
type Attribute struct {
	Name string
	kind string
	raw  []byte
}

// Kind is one of "string", "float", "int", "floats", "bytes".
func (a *Attribute) Kind() string { return a.kind }

func (a *Attribute) ReadString() (string, error) {
	if a.kind != attrString {
		return "", a.mismatch(attrString)
	}
	return string(a.raw), nil
}

// ReadFloat64 reads a float or integer scalar.
func (a *Attribute) ReadFloat64() (float64, error) {
	switch a.kind {
	case attrFloat:
		return decodeFloats(a.raw)[0], nil
	case attrInt:
		return float64(decodeInt(a.raw)), nil
	}
	return 0, a.mismatch(attrFloat)
}

func (a *Attribute) ReadInt64() (int64, error) {
	if a.kind != attrInt {
		return 0, a.mismatch(attrInt)
	}
	return decodeInt(a.raw), nil
}

func (a *Attribute) ReadFloat64s() ([]float64, error) {
	switch a.kind {
	case attrFloats:
		return decodeFloats(a.raw), nil
	case attrFloat:
		return decodeFloats(a.raw), nil
	}
	return nil, a.mismatch(attrFloats)
}

func (a *Attribute) ReadBytes() ([]byte, error) {
	if a.kind != attrBytes {
		return nil, a.mismatch(attrBytes)
	}
	return a.raw, nil
}

func (a *Attribute) mismatch(want string) error {
	return fmt.Errorf("%w: %s is %s, not %s", ErrTypeMismatch, a.Name, a.kind, want)
}

func encodeInt(v int64) []byte {
	return binary.LittleEndian.AppendUint64(nil, uint64(v))
}

func decodeInt(b []byte) int64 {
	if len(b) < 8 {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func encodeFloats(v []float64) []byte {
	b := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(x))
	}
	return b
}

func decodeFloats(b []byte) []float64 {
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return out
}
