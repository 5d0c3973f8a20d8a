package xlframe

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/xlframe/domain/model"
)

// builtinDateNumFmts are the builtin number format ids that render dates or
// times, including the East Asian locale variants.
var builtinDateNumFmts = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// cellCodec bridges excelize cells and the raw cells of the domain model.
type cellCodec struct {
	file     *excelize.File
	date1904 bool
	// dateStyles caches whether a style id carries a date number format
	dateStyles map[int]bool
}

func newCellCodec(file *excelize.File) *cellCodec {
	c := &cellCodec{
		file:       file,
		dateStyles: make(map[int]bool),
	}
	if props, err := file.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		c.date1904 = *props.Date1904
	}
	return c
}

// readCell returns the evaluated cell at 0-based coordinates. Formulas are
// evaluated unless cached is set, in which case the stored result is used.
func (c *cellCodec) readCell(sheet string, row, col int, cached bool) (model.RawCell, error) {
	name := cellName(row, col)

	formula, err := c.file.GetCellFormula(sheet, name)
	if err != nil {
		return model.RawCell{}, err
	}
	if formula != "" && !cached {
		return c.evaluate(sheet, name, formula)
	}

	typ, err := c.file.GetCellType(sheet, name)
	if err != nil {
		return model.RawCell{}, err
	}
	raw, err := c.file.GetCellValue(sheet, name, excelize.Options{RawCellValue: true})
	if err != nil {
		return model.RawCell{}, err
	}

	switch typ {
	case excelize.CellTypeBool:
		return model.RawCell{Kind: model.CellBoolean, Bool: raw == "1" || strings.EqualFold(raw, "true")}, nil
	case excelize.CellTypeError:
		return model.RawCell{Kind: model.CellError, Text: raw}, nil
	case excelize.CellTypeDate:
		t, ok := parseISODate(raw)
		if !ok {
			return model.RawCell{Kind: model.CellString, Text: raw}, nil
		}
		return model.RawCell{Kind: model.CellNumeric, Number: model.TimeToSerial(t, c.date1904), DateFormatted: true}, nil
	case excelize.CellTypeFormula, excelize.CellTypeInlineString, excelize.CellTypeSharedString:
		if raw == "" {
			return model.RawCell{Kind: model.CellBlank}, nil
		}
		return model.RawCell{Kind: model.CellString, Text: raw}, nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		return c.numeric(sheet, name, raw)
	default:
		return model.RawCell{Kind: model.CellUnknown, Text: raw}, nil
	}
}

// evaluate runs the excelize formula engine and types its textual result.
func (c *cellCodec) evaluate(sheet, name, formula string) (model.RawCell, error) {
	result, err := c.file.CalcCellValue(sheet, name, excelize.Options{RawCellValue: true})
	if err != nil {
		// operator errors such as 1/0 only carry the code in err
		for _, code := range []string{result, err.Error()} {
			if isErrorCode(code) {
				return model.RawCell{Kind: model.CellError, Text: code}, nil
			}
		}
		// left for the classifier, which rejects unevaluated formulas
		return model.RawCell{Kind: model.CellFormula, Text: formula}, nil
	}
	switch {
	case result == "":
		return model.RawCell{Kind: model.CellBlank}, nil
	case result == "TRUE" || result == "FALSE":
		return model.RawCell{Kind: model.CellBoolean, Bool: result == "TRUE"}, nil
	case isErrorCode(result):
		return model.RawCell{Kind: model.CellError, Text: result}, nil
	}
	return c.numeric(sheet, name, result)
}

// numeric types a raw number cell value, falling back to text for values
// that do not parse.
func (c *cellCodec) numeric(sheet, name, raw string) (model.RawCell, error) {
	if raw == "" {
		return model.RawCell{Kind: model.CellBlank}, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return model.RawCell{Kind: model.CellString, Text: raw}, nil
	}
	dateFormatted, err := c.isDateFormatted(sheet, name)
	if err != nil {
		return model.RawCell{}, err
	}
	return model.RawCell{Kind: model.CellNumeric, Number: v, DateFormatted: dateFormatted}, nil
}

func (c *cellCodec) isDateFormatted(sheet, name string) (bool, error) {
	styleID, err := c.file.GetCellStyle(sheet, name)
	if err != nil {
		return false, err
	}
	return c.isDateStyle(styleID)
}

// isDateStyle reports whether a style carries a date or time number format.
func (c *cellCodec) isDateStyle(styleID int) (bool, error) {
	if cachedResult, ok := c.dateStyles[styleID]; ok {
		return cachedResult, nil
	}
	style, err := c.file.GetStyle(styleID)
	if err != nil {
		return false, err
	}
	isDate := builtinDateNumFmts[style.NumFmt]
	if style.CustomNumFmt != nil {
		isDate = isDateFormatCode(*style.CustomNumFmt)
	}
	c.dateStyles[styleID] = isDate
	return isDate, nil
}

// isDateFormatCode reports whether a custom number format renders a date or
// a time. Quoted literals, escaped characters and bracketed sections such as
// colors and locales are ignored; elapsed time sections ([h], [mm]) count.
func isDateFormatCode(code string) bool {
	section := code
	if idx := strings.Index(code, ";"); idx >= 0 {
		section = code[:idx]
	}

	var b strings.Builder
	for i := 0; i < len(section); i++ {
		switch ch := section[i]; ch {
		case '"':
			end := strings.IndexByte(section[i+1:], '"')
			if end < 0 {
				i = len(section)
				continue
			}
			i += end + 1
		case '\\', '_', '*':
			i++
		case '[':
			end := strings.IndexByte(section[i:], ']')
			if end < 0 {
				return false
			}
			inner := strings.ToLower(section[i+1 : i+end])
			if strings.Trim(inner, "hms") == "" {
				b.WriteString(inner)
			}
			i += end
		default:
			b.WriteByte(ch)
		}
	}
	plain := strings.ToLower(b.String())
	if strings.Contains(plain, "general") {
		return false
	}
	return strings.ContainsAny(plain, "ymdhs")
}

// isErrorCode reports whether s is a spreadsheet error literal like #DIV/0!.
func isErrorCode(s string) bool {
	switch s {
	case "#NULL!", "#DIV/0!", "#VALUE!", "#REF!", "#NAME?", "#NUM!", "#N/A",
		"#GETTING_DATA", "#SPILL!", "#CALC!", "#UNKNOWN!", "#FIELD!", "#BLOCKED!", "#CONNECT!", "#BUSY!":
		return true
	default:
		return false
	}
}

// parseISODate parses the ISO 8601 values stored in date typed cells.
func parseISODate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04:05.999", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// headerText renders a header cell as a column name; blank and error cells
// have no name.
func headerText(cell model.RawCell, date1904 bool) string {
	switch cell.Kind {
	case model.CellString:
		return strings.TrimSpace(cell.Text)
	case model.CellBoolean:
		return strconv.FormatBool(cell.Bool)
	case model.CellNumeric:
		if cell.DateFormatted {
			if t, err := model.SerialToTime(cell.Number, date1904); err == nil {
				return model.FormatDateTime(t, "")
			}
		}
		return model.FormatNumber(cell.Number)
	default:
		return ""
	}
}

// writeHeader writes a column name as a string cell.
func (c *cellCodec) writeHeader(sheet string, row, col int, name string) error {
	return c.file.SetCellStr(sheet, cellName(row, col), name)
}

// writeValue writes entry i of a column using the primitive matching the
// column type. Missing entries blank the cell but keep its style.
func (c *cellCodec) writeValue(sheet string, row, col int, column *model.Column, i int) error {
	name := cellName(row, col)
	if column.IsMissing(i) {
		return c.file.SetCellDefault(sheet, name, "")
	}
	switch column.Type() {
	case model.Boolean:
		return c.file.SetCellBool(sheet, name, column.Bool(i))
	case model.Numeric:
		return c.file.SetCellFloat(sheet, name, column.Number(i), -1, 64)
	case model.DateTime:
		return c.file.SetCellFloat(sheet, name, model.TimeToSerial(column.Time(i), c.date1904), -1, 64)
	case model.String:
		return c.file.SetCellStr(sheet, name, column.Text(i))
	default:
		return fmt.Errorf("%w: %d", ErrUnknownDataType, int(column.Type()))
	}
}

// requestRecalculation asks spreadsheet applications to recalculate every
// formula when the workbook is next opened.
func (c *cellCodec) requestRecalculation() error {
	fullCalc := true
	return c.file.SetCalcProps(&excelize.CalcPropsOptions{FullCalcOnLoad: &fullCalc})
}
