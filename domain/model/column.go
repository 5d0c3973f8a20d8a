package model

import (
	"fmt"
	"time"

	"github.com/apache/arrow/go/v18/arrow/bitutil"
)

// Column is a homogeneous, fixed-length sequence of typed values together
// with a missing bitmap (bit set means the entry is missing).
// Exactly one of the value slices is populated, selected by the column type.
// A Column is never mutated after construction.
//
// DateTime values are written to cells by wall clock and read back in UTC,
// so callers holding times in another zone should convert them first.
type Column struct {
	dataType DataType
	length   int
	missing  []byte
	bools    []bool
	numbers  []float64
	times    []time.Time
	texts    []string
}

// newColumn allocates an all-present column of the given type and length.
func newColumn(dt DataType, n int) (*Column, error) {
	c := &Column{
		dataType: dt,
		length:   n,
		missing:  make([]byte, bitutil.BytesForBits(int64(n))),
	}
	switch dt {
	case Boolean:
		c.bools = make([]bool, n)
	case Numeric:
		c.numbers = make([]float64, n)
	case DateTime:
		c.times = make([]time.Time, n)
	case String:
		c.texts = make([]string, n)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownDataType, int(dt))
	}
	return c, nil
}

func (c *Column) setMissing(i int) {
	bitutil.SetBit(c.missing, i)
}

func (c *Column) applyMissing(missing []bool) error {
	if missing == nil {
		return nil
	}
	if len(missing) != c.length {
		return fmt.Errorf("%w: %d values but %d missing flags", ErrDimensionMismatch, c.length, len(missing))
	}
	for i, m := range missing {
		if m {
			c.setMissing(i)
		}
	}
	return nil
}

// NewBooleanColumn creates a Boolean column. missing may be nil; otherwise it
// must have the same length as values.
func NewBooleanColumn(values []bool, missing []bool) (*Column, error) {
	c, err := newColumn(Boolean, len(values))
	if err != nil {
		return nil, err
	}
	copy(c.bools, values)
	if err := c.applyMissing(missing); err != nil {
		return nil, err
	}
	return c, nil
}

// NewNumericColumn creates a Numeric column.
func NewNumericColumn(values []float64, missing []bool) (*Column, error) {
	c, err := newColumn(Numeric, len(values))
	if err != nil {
		return nil, err
	}
	copy(c.numbers, values)
	if err := c.applyMissing(missing); err != nil {
		return nil, err
	}
	return c, nil
}

// NewDateTimeColumn creates a DateTime column. Values keep their zone here;
// a workbook stores only their wall clock.
func NewDateTimeColumn(values []time.Time, missing []bool) (*Column, error) {
	c, err := newColumn(DateTime, len(values))
	if err != nil {
		return nil, err
	}
	copy(c.times, values)
	if err := c.applyMissing(missing); err != nil {
		return nil, err
	}
	return c, nil
}

// NewStringColumn creates a String column.
func NewStringColumn(values []string, missing []bool) (*Column, error) {
	c, err := newColumn(String, len(values))
	if err != nil {
		return nil, err
	}
	copy(c.texts, values)
	if err := c.applyMissing(missing); err != nil {
		return nil, err
	}
	return c, nil
}

// NewColumn creates a column of type dt from loosely typed values.
// A nil entry is missing. Other entries must match dt: bool for Boolean,
// any Go integer or float for Numeric, time.Time for DateTime and string
// for String.
func NewColumn(dt DataType, values []any) (*Column, error) {
	c, err := newColumn(dt, len(values))
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if v == nil {
			c.setMissing(i)
			continue
		}
		if err := c.set(i, v); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return c, nil
}

func (c *Column) set(i int, v any) error {
	switch c.dataType {
	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%w: %T is not a %s value", ErrDimensionMismatch, v, c.dataType)
		}
		c.bools[i] = b
	case Numeric:
		f, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("%w: %T is not a %s value", ErrDimensionMismatch, v, c.dataType)
		}
		c.numbers[i] = f
	case DateTime:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("%w: %T is not a %s value", ErrDimensionMismatch, v, c.dataType)
		}
		c.times[i] = t
	case String:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %T is not a %s value", ErrDimensionMismatch, v, c.dataType)
		}
		c.texts[i] = s
	default:
		return fmt.Errorf("%w: %d", ErrUnknownDataType, int(c.dataType))
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Type returns the column type.
func (c *Column) Type() DataType {
	return c.dataType
}

// Len returns the number of entries.
func (c *Column) Len() int {
	return c.length
}

// IsMissing reports whether entry i is missing.
func (c *Column) IsMissing(i int) bool {
	return bitutil.BitIsSet(c.missing, i)
}

// MissingCount returns the number of missing entries.
func (c *Column) MissingCount() int {
	return bitutil.CountSetBits(c.missing, 0, c.length)
}

// Bool returns entry i of a Boolean column.
func (c *Column) Bool(i int) bool {
	return c.bools[i]
}

// Number returns entry i of a Numeric column.
func (c *Column) Number(i int) float64 {
	return c.numbers[i]
}

// Time returns entry i of a DateTime column.
func (c *Column) Time(i int) time.Time {
	return c.times[i]
}

// Text returns entry i of a String column.
func (c *Column) Text(i int) string {
	return c.texts[i]
}

// Value returns entry i as bool, float64, time.Time or string, or nil when missing.
func (c *Column) Value(i int) any {
	if c.IsMissing(i) {
		return nil
	}
	switch c.dataType {
	case Boolean:
		return c.bools[i]
	case Numeric:
		return c.numbers[i]
	case DateTime:
		return c.times[i]
	case String:
		return c.texts[i]
	default:
		return nil
	}
}

// Values returns every entry as in Value.
func (c *Column) Values() []any {
	out := make([]any, c.length)
	for i := range out {
		out[i] = c.Value(i)
	}
	return out
}

// Missing returns the missing flags as a bool slice.
func (c *Column) Missing() []bool {
	out := make([]bool, c.length)
	for i := range out {
		out[i] = c.IsMissing(i)
	}
	return out
}
