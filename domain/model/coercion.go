package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultDateTimeLayout renders DateTime values that carry a clock time as text
	DefaultDateTimeLayout = "2006-01-02 15:04:05"
	// DefaultDateLayout renders DateTime values at midnight as text
	DefaultDateLayout = "2006-01-02"
)

// CoercionPolicy selects which conversions a column build may perform.
type CoercionPolicy int

const (
	// CoercionStrict only performs lossless conversions towards wider types
	CoercionStrict CoercionPolicy = iota
	// CoercionForce additionally performs lossy and parsing conversions
	CoercionForce
)

// String returns the policy name
func (p CoercionPolicy) String() string {
	if p == CoercionForce {
		return "force"
	}
	return "strict"
}

// FormatDateTime renders t as text. An empty layout picks the date-only
// layout for midnight values and the date-time layout otherwise.
func FormatDateTime(t time.Time, layout string) string {
	if layout != "" {
		return t.Format(layout)
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DefaultDateLayout)
	}
	return t.Format(DefaultDateTimeLayout)
}

// FormatNumber renders v as plain decimal text.
func FormatNumber(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// renderValue turns a sample value into text for warnings.
func renderValue(v any, layout string) string {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return FormatNumber(x)
	case time.Time:
		return FormatDateTime(x, layout)
	case string:
		return x
	default:
		return ""
	}
}

// coerce converts v of type from into type to. When ok is false the entry
// becomes missing and kind tells why.
//
//	from \ to  Boolean        Numeric          DateTime             String
//	Boolean    identity       1/0              unsupported          "true"/"false"
//	Numeric    forced: >0     identity         forced: valid serial decimal text
//	DateTime   never          forced: serial   identity             layout text
//	String     forced: parse  forced: parse    forced: parse        identity
func (cfg BuilderConfig) coerce(v any, from, to DataType) (out any, kind WarningKind, ok bool) {
	if from == to {
		return v, 0, true
	}
	force := cfg.Policy == CoercionForce

	switch from {
	case Boolean:
		b := v.(bool)
		switch to {
		case Numeric:
			if b {
				return 1.0, 0, true
			}
			return 0.0, 0, true
		case String:
			return strconv.FormatBool(b), 0, true
		default:
			return nil, WarningUnsupported, false
		}

	case Numeric:
		f := v.(float64)
		switch to {
		case Boolean:
			if !force {
				return nil, WarningDisallowed, false
			}
			return f > 0, 0, true
		case DateTime:
			if !force {
				return nil, WarningDisallowed, false
			}
			t, err := SerialToTime(f, cfg.Date1904)
			if err != nil {
				return nil, WarningFailed, false
			}
			return t, 0, true
		case String:
			return FormatNumber(f), 0, true
		default:
			return nil, WarningUnsupported, false
		}

	case DateTime:
		t := v.(time.Time)
		switch to {
		case Boolean:
			// Narrowing a date to a logical value is rejected whether forced or not.
			return nil, WarningUnsupported, false
		case Numeric:
			if !force {
				return nil, WarningDisallowed, false
			}
			return TimeToSerial(t, cfg.Date1904), 0, true
		case String:
			return FormatDateTime(t, cfg.DateTimeLayout), 0, true
		default:
			return nil, WarningUnsupported, false
		}

	case String:
		s := v.(string)
		if !force {
			return nil, WarningDisallowed, false
		}
		trimmed := strings.TrimSpace(s)
		switch to {
		case Boolean:
			switch {
			case strings.EqualFold(trimmed, "true"):
				return true, 0, true
			case strings.EqualFold(trimmed, "false"):
				return false, 0, true
			}
			return nil, WarningFailed, false
		case Numeric:
			f, err := strconv.ParseFloat(trimmed, 64)
			if err != nil {
				return nil, WarningFailed, false
			}
			return f, 0, true
		case DateTime:
			t, parsed := ParseDateTime(trimmed, cfg.DateTimeLayout)
			if !parsed {
				return nil, WarningFailed, false
			}
			return t, 0, true
		default:
			return nil, WarningUnsupported, false
		}
	}
	return nil, WarningUnsupported, false
}
