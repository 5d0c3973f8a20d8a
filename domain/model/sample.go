package model

import (
	"fmt"
	"time"
)

// CellKind is the kind of a raw cell as reported by the spreadsheet codec.
type CellKind int

const (
	// CellBlank is an empty cell
	CellBlank CellKind = iota
	// CellBoolean is a logical cell
	CellBoolean
	// CellNumeric is a number cell (dates are numbers with a date format)
	CellNumeric
	// CellString is a text cell
	CellString
	// CellError is a cell holding an error code such as #DIV/0!
	CellError
	// CellFormula is a formula that has not been evaluated
	CellFormula
	// CellUnknown is a cell kind the codec could not identify
	CellUnknown
)

// String returns the kind name
func (k CellKind) String() string {
	switch k {
	case CellBlank:
		return "blank"
	case CellBoolean:
		return "boolean"
	case CellNumeric:
		return "numeric"
	case CellString:
		return "string"
	case CellError:
		return "error"
	case CellFormula:
		return "formula"
	default:
		return "unknown"
	}
}

// RawCell is an evaluated cell value as produced by the codec bridge.
type RawCell struct {
	Kind   CellKind
	Bool   bool
	Number float64
	// Text holds the string value, the error code or the formula text.
	Text string
	// DateFormatted is set when a numeric cell carries a date/time number format.
	DateFormatted bool
}

// MissingValues is the set of literal values treated as missing data.
type MissingValues struct {
	Strings []string
	Numbers []float64
}

// NewMissingValues builds a MissingValues set from strings and numbers.
// Any other value type is rejected.
func NewMissingValues(values ...any) (MissingValues, error) {
	var mv MissingValues
	for _, v := range values {
		if s, ok := v.(string); ok {
			mv.Strings = append(mv.Strings, s)
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			return MissingValues{}, fmt.Errorf("%w: missing value of type %T", ErrConfiguration, v)
		}
		mv.Numbers = append(mv.Numbers, f)
	}
	return mv, nil
}

// IsMissingString reports whether s is a string sentinel.
func (mv MissingValues) IsMissingString(s string) bool {
	for _, m := range mv.Strings {
		if m == s {
			return true
		}
	}
	return false
}

// IsMissingNumber reports whether v is a numeric sentinel.
func (mv MissingValues) IsMissingNumber(v float64) bool {
	for _, m := range mv.Numbers {
		if m == v {
			return true
		}
	}
	return false
}

// IsEmpty reports whether no sentinel is configured.
func (mv MissingValues) IsEmpty() bool {
	return len(mv.Strings) == 0 && len(mv.Numbers) == 0
}

type sampleKind int

const (
	sampleValue sampleKind = iota
	sampleMissing
	sampleError
)

// CellSample is one classified cell: a typed value, a missing marker or an
// error marker. Values are bool, float64, time.Time or string.
type CellSample struct {
	// Ref is the cell address used in warnings, e.g. "Sheet1!B3".
	Ref   string
	kind  sampleKind
	typ   DataType
	value any
}

// MissingSample returns a missing sample for ref.
func MissingSample(ref string) CellSample {
	return CellSample{Ref: ref, kind: sampleMissing}
}

// ValueSample returns a typed sample. The value must match the type.
func ValueSample(ref string, dt DataType, value any) CellSample {
	return CellSample{Ref: ref, kind: sampleValue, typ: dt, value: value}
}

// ErrorSample returns an error sample carrying the error code.
func ErrorSample(ref, code string) CellSample {
	return CellSample{Ref: ref, kind: sampleError, value: code}
}

// IsMissing reports whether the sample is missing.
func (s CellSample) IsMissing() bool { return s.kind == sampleMissing }

// IsError reports whether the sample came from an error cell.
func (s CellSample) IsError() bool { return s.kind == sampleError }

// Type returns the detected type of a value sample.
func (s CellSample) Type() DataType { return s.typ }

// Value returns the sample value (nil for missing samples).
func (s CellSample) Value() any { return s.value }

// Classify turns a raw cell into a sample. Formula and unknown cells are
// fatal: formulas must be evaluated before they reach the classifier.
func Classify(ref string, cell RawCell, missing MissingValues, date1904 bool) (CellSample, error) {
	switch cell.Kind {
	case CellBlank:
		return MissingSample(ref), nil
	case CellBoolean:
		return ValueSample(ref, Boolean, cell.Bool), nil
	case CellNumeric:
		if missing.IsMissingNumber(cell.Number) {
			return MissingSample(ref), nil
		}
		if cell.DateFormatted && ValidSerial(cell.Number, date1904) {
			t, err := SerialToTime(cell.Number, date1904)
			if err == nil {
				return ValueSample(ref, DateTime, t), nil
			}
		}
		return ValueSample(ref, Numeric, cell.Number), nil
	case CellString:
		if missing.IsMissingString(cell.Text) {
			return MissingSample(ref), nil
		}
		return ValueSample(ref, String, cell.Text), nil
	case CellError:
		return ErrorSample(ref, cell.Text), nil
	case CellFormula:
		return CellSample{}, fmt.Errorf("%w: cell %s holds an unevaluated formula %q", ErrCellClassification, ref, cell.Text)
	default:
		return CellSample{}, fmt.Errorf("%w: cell %s has unsupported kind %s", ErrCellClassification, ref, cell.Kind)
	}
}

// SampleFromValue classifies a Go value (nil, bool, numbers, time.Time,
// string or []byte) as produced by database/sql or Arrow readers.
func SampleFromValue(ref string, v any, missing MissingValues) (CellSample, error) {
	switch x := v.(type) {
	case nil:
		return MissingSample(ref), nil
	case bool:
		return ValueSample(ref, Boolean, x), nil
	case time.Time:
		return ValueSample(ref, DateTime, x), nil
	case string:
		if missing.IsMissingString(x) {
			return MissingSample(ref), nil
		}
		return ValueSample(ref, String, x), nil
	case []byte:
		s := string(x)
		if missing.IsMissingString(s) {
			return MissingSample(ref), nil
		}
		return ValueSample(ref, String, s), nil
	default:
		f, ok := toFloat(v)
		if !ok {
			return CellSample{}, fmt.Errorf("%w: value at %s has unsupported type %T", ErrCellClassification, ref, v)
		}
		if missing.IsMissingNumber(f) {
			return MissingSample(ref), nil
		}
		return ValueSample(ref, Numeric, f), nil
	}
}
