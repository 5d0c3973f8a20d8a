package xlframe

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/nao1215/xlframe/domain/model"
)

// fallbackStyleID is the workbook's first cell format, used when a name
// based lookup finds nothing.
const fallbackStyleID = 0

// StyleMap holds the style id chosen for the header and data cells of each
// column of one write.
type StyleMap struct {
	header map[int]int
	data   map[int]int
}

func newStyleMap() StyleMap {
	return StyleMap{header: make(map[int]int), data: make(map[int]int)}
}

// Header returns the style of the header cell of column i.
func (m StyleMap) Header(i int) (int, bool) {
	id, ok := m.header[i]
	return id, ok
}

// Data returns the style of the data cells of column i.
func (m StyleMap) Data(i int) (int, bool) {
	id, ok := m.data[i]
	return id, ok
}

// styleRegistry holds the named cell styles of one workbook.
type styleRegistry struct {
	file   *excelize.File
	styles map[string]int
}

func newStyleRegistry(file *excelize.File) *styleRegistry {
	return &styleRegistry{file: file, styles: make(map[string]int)}
}

// create registers style under name, replacing any previous definition.
func (r *styleRegistry) create(name string, style *excelize.Style) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty style name", ErrConfiguration)
	}
	id, err := r.file.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("failed to create style %q: %w", name, err)
	}
	r.styles[name] = id
	return id, nil
}

func (r *styleRegistry) lookup(name string) (int, bool) {
	id, ok := r.styles[name]
	return id, ok
}

// stylePalette is the builtin set of styles: one for headers, one shared by
// Boolean, Numeric and String data, one for DateTime data.
type stylePalette struct {
	header int
	data   int
	date   int
}

func newStylePalette(file *excelize.File, dateFormat string) (stylePalette, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	header, err := file.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9D9D9"}},
		Border: border,
	})
	if err != nil {
		return stylePalette{}, fmt.Errorf("failed to create header style: %w", err)
	}
	data, err := file.NewStyle(&excelize.Style{})
	if err != nil {
		return stylePalette{}, fmt.Errorf("failed to create data style: %w", err)
	}
	date, err := newDateStyle(file, dateFormat)
	if err != nil {
		return stylePalette{}, err
	}
	return stylePalette{header: header, data: data, date: date}, nil
}

func newDateStyle(file *excelize.File, dateFormat string) (int, error) {
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}
	id, err := file.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		return 0, fmt.Errorf("failed to create date style %q: %w", dateFormat, err)
	}
	return id, nil
}

// forType returns the palette style of a data column.
func (p stylePalette) forType(dt model.DataType) (int, error) {
	switch dt {
	case model.Boolean, model.Numeric, model.String:
		return p.data, nil
	case model.DateTime:
		return p.date, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownDataType, int(dt))
	}
}

// styleResolver computes the StyleMap of one write under the workbook's
// style action.
type styleResolver struct {
	file     *excelize.File
	action   StyleAction
	prefix   string
	registry *styleRegistry
	palette  stylePalette
	logger   *logrus.Logger
}

// resolve builds the StyleMap for writing df with its top-left cell at
// anchor. header tells whether a header row is written.
func (s *styleResolver) resolve(df *model.DataFrame, anchor CellRef, header bool) (StyleMap, error) {
	m := newStyleMap()
	switch s.action {
	case StyleActionBuiltin:
		for i := 0; i < df.ColumnCount(); i++ {
			if header {
				m.header[i] = s.palette.header
			}
			id, err := s.palette.forType(df.Type(i))
			if err != nil {
				return StyleMap{}, err
			}
			m.data[i] = id
		}
	case StyleActionReuse:
		dataRow := anchor.Row
		if header {
			dataRow++
		}
		for i := 0; i < df.ColumnCount(); i++ {
			col := anchor.Col + i
			if header {
				id, err := s.file.GetCellStyle(anchor.Sheet, cellName(anchor.Row, col))
				if err != nil {
					return StyleMap{}, fmt.Errorf("failed to sample header style: %w", err)
				}
				m.header[i] = id
			}
			id, err := s.file.GetCellStyle(anchor.Sheet, cellName(dataRow, col))
			if err != nil {
				return StyleMap{}, fmt.Errorf("failed to sample data style: %w", err)
			}
			m.data[i] = id
		}
	case StyleActionNamePrefix:
		for i := 0; i < df.ColumnCount(); i++ {
			if header {
				m.header[i] = s.byName(i, df.Name(i), headerStyleNames(s.prefix, df.Name(i), i))
			}
			m.data[i] = s.byName(i, df.Name(i), columnStyleNames(s.prefix, df.Name(i), i, df.Type(i)))
		}
	case StyleActionNone:
	default:
		return StyleMap{}, fmt.Errorf("%w: %d", ErrUnsupportedStyleAction, int(s.action))
	}
	return m, nil
}

// byName returns the first registered style among candidates, or the
// fallback style with a warning.
func (s *styleResolver) byName(col int, name string, candidates []string) int {
	for _, candidate := range candidates {
		if id, ok := s.registry.lookup(candidate); ok {
			return id
		}
	}
	s.logger.WithFields(logrus.Fields{
		"column":     col,
		"name":       name,
		"candidates": candidates,
	}).Warn("no named style found, using the workbook default style")
	return fallbackStyleID
}

// headerStyleNames lists the header style names from most to least specific.
// The index part is the 1-based column position, as in the Col<i> names.
func headerStyleNames(prefix, name string, index int) []string {
	var names []string
	if name != "" {
		names = append(names, prefix+".Header."+name)
	}
	return append(names,
		prefix+".Header."+strconv.Itoa(index+1),
		prefix+".Header",
	)
}

// columnStyleNames lists the data style names from most to least specific.
func columnStyleNames(prefix, name string, index int, dt model.DataType) []string {
	var names []string
	if name != "" {
		names = append(names, prefix+".Column."+name)
	}
	return append(names,
		prefix+".Column."+strconv.Itoa(index+1),
		prefix+".Column."+dt.String(),
	)
}
