package model

import (
	"fmt"
	"time"
)

// ErrorCellPolicy decides what happens to error cells (#DIV/0!, #N/A, ...).
type ErrorCellPolicy int

const (
	// ErrorCellStop aborts the column build on the first error cell
	ErrorCellStop ErrorCellPolicy = iota
	// ErrorCellWarn reads error cells as missing and reports a warning
	ErrorCellWarn
)

// BuilderConfig parameterises a ColumnBuilder.
type BuilderConfig struct {
	// Policy selects strict or forced conversion
	Policy CoercionPolicy
	// MissingValues lists the sentinel values read as missing
	MissingValues MissingValues
	// ErrorCells selects the error cell policy
	ErrorCells ErrorCellPolicy
	// DateTimeLayout is the Go layout used for DateTime <-> String conversion.
	// Empty selects the defaults.
	DateTimeLayout string
	// Date1904 selects the 1904 date system for serial conversion
	Date1904 bool
}

// ColumnBuilder collects classified samples for one column and materialises
// them into a typed Column.
type ColumnBuilder struct {
	cfg      BuilderConfig
	samples  []CellSample
	warnings []ConversionWarning
}

// NewColumnBuilder creates a builder with room for capacity samples.
func NewColumnBuilder(cfg BuilderConfig, capacity int) *ColumnBuilder {
	if capacity < 0 {
		capacity = 0
	}
	return &ColumnBuilder{
		cfg:     cfg,
		samples: make([]CellSample, 0, capacity),
	}
}

// AddCell classifies a raw cell and appends the sample.
func (b *ColumnBuilder) AddCell(ref string, cell RawCell) error {
	s, err := Classify(ref, cell, b.cfg.MissingValues, b.cfg.Date1904)
	if err != nil {
		return err
	}
	b.samples = append(b.samples, s)
	return nil
}

// AddValue classifies a Go value and appends the sample.
func (b *ColumnBuilder) AddValue(ref string, v any) error {
	s, err := SampleFromValue(ref, v, b.cfg.MissingValues)
	if err != nil {
		return err
	}
	b.samples = append(b.samples, s)
	return nil
}

// AddSample appends an already classified sample.
func (b *ColumnBuilder) AddSample(s CellSample) {
	b.samples = append(b.samples, s)
}

// Len returns the number of samples collected.
func (b *ColumnBuilder) Len() int {
	return len(b.samples)
}

// InferType returns the widest type among the non-missing, non-error samples.
// A column without such samples is Boolean.
func (b *ColumnBuilder) InferType() DataType {
	return InferType(b.samples)
}

// InferType returns the widest type among the value samples, Boolean when
// there are none. The scan stops at the first String since nothing is wider.
func InferType(samples []CellSample) DataType {
	inferred := Boolean
	for _, s := range samples {
		if s.kind != sampleValue {
			continue
		}
		wider, err := Wider(inferred, s.typ)
		if err != nil {
			continue
		}
		inferred = wider
		if inferred.IsMaximal() {
			break
		}
	}
	return inferred
}

// Build converts every sample to the target type. Coercions that fail or are
// not allowed by the policy produce missing entries and warnings. Error cells
// abort the build unless the policy is ErrorCellWarn.
func (b *ColumnBuilder) Build(target DataType) (*Column, error) {
	col, err := newColumn(target, len(b.samples))
	if err != nil {
		return nil, err
	}

	for i, s := range b.samples {
		switch s.kind {
		case sampleMissing:
			col.setMissing(i)
			continue
		case sampleError:
			if b.cfg.ErrorCells != ErrorCellWarn {
				return nil, fmt.Errorf("%w: cell %s holds error value %v", ErrCellClassification, s.Ref, s.value)
			}
			col.setMissing(i)
			b.warnings = append(b.warnings, ConversionWarning{
				Kind:  WarningErrorCell,
				Cell:  s.Ref,
				Value: fmt.Sprint(s.value),
				From:  target,
				To:    target,
			})
			continue
		}

		v, kind, ok := b.cfg.coerce(s.value, s.typ, target)
		if !ok {
			col.setMissing(i)
			b.warnings = append(b.warnings, ConversionWarning{
				Kind:  kind,
				Cell:  s.Ref,
				Value: renderValue(s.value, b.cfg.DateTimeLayout),
				From:  s.typ,
				To:    target,
			})
			continue
		}
		col.store(i, v)
	}
	return col, nil
}

// BuildInferred builds the column with its inferred type.
func (b *ColumnBuilder) BuildInferred() (*Column, error) {
	return b.Build(b.InferType())
}

// Warnings returns the warnings produced by Build calls so far.
func (b *ColumnBuilder) Warnings() []ConversionWarning {
	return b.warnings
}

// store writes a value already coerced to the column type.
func (c *Column) store(i int, v any) {
	switch c.dataType {
	case Boolean:
		c.bools[i] = v.(bool)
	case Numeric:
		c.numbers[i] = v.(float64)
	case DateTime:
		c.times[i] = v.(time.Time)
	case String:
		c.texts[i] = v.(string)
	}
}
