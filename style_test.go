package xlframe

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestHeaderStyleNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"P.Header.amount", "P.Header.2", "P.Header"},
		headerStyleNames("P", "amount", 1))
	assert.Equal(t,
		[]string{"P.Header.1", "P.Header"},
		headerStyleNames("P", "", 0))
}

func TestColumnStyleNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"P.Column.when", "P.Column.4", "P.Column.DateTime"},
		columnStyleNames("P", "when", 3, DateTime))
	assert.Equal(t,
		[]string{"P.Column.1", "P.Column.Boolean"},
		columnStyleNames("P", "", 0, Boolean))
}

// newStyleFixture returns a resolver over a fresh workbook with a buffered logger.
func newStyleFixture(t *testing.T, action StyleAction) (*styleResolver, *bytes.Buffer) {
	t.Helper()

	f := excelize.NewFile()
	t.Cleanup(func() {
		_ = f.Close()
	})
	palette, err := newStylePalette(f, DefaultDateFormat)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	return &styleResolver{
		file:     f,
		action:   action,
		prefix:   "prefix",
		registry: newStyleRegistry(f),
		palette:  palette,
		logger:   logger,
	}, &buf
}

func threeColumnFrame(t *testing.T) *DataFrame {
	t.Helper()

	df := NewDataFrame()
	for _, c := range []struct {
		name string
		dt   DataType
		v    any
	}{
		{name: "flag", dt: Boolean, v: true},
		{name: "when", dt: DateTime, v: nil},
		{name: "amount", dt: Numeric, v: 1.5},
	} {
		col, err := NewColumn(c.dt, c.v)
		require.NoError(t, err)
		require.NoError(t, df.AddColumn(c.name, col))
	}
	return df
}

func TestStyleResolver_NamePrefix(t *testing.T) {
	t.Parallel()

	t.Run("index beats type name", func(t *testing.T) {
		t.Parallel()

		s, _ := newStyleFixture(t, StyleActionNamePrefix)
		byIndex, err := s.registry.create("prefix.Column.3", &excelize.Style{NumFmt: 2})
		require.NoError(t, err)
		_, err = s.registry.create("prefix.Column.Numeric", &excelize.Style{NumFmt: 4})
		require.NoError(t, err)

		m, err := s.resolve(threeColumnFrame(t), NewCellRef("Sheet1", 0, 0), true)
		require.NoError(t, err)
		got, ok := m.Data(2)
		require.True(t, ok)
		assert.Equal(t, byIndex, got)
	})

	t.Run("name beats index", func(t *testing.T) {
		t.Parallel()

		s, _ := newStyleFixture(t, StyleActionNamePrefix)
		byName, err := s.registry.create("prefix.Header.amount", &excelize.Style{Font: &excelize.Font{Bold: true}})
		require.NoError(t, err)
		_, err = s.registry.create("prefix.Header.3", &excelize.Style{Font: &excelize.Font{Italic: true}})
		require.NoError(t, err)
		generic, err := s.registry.create("prefix.Header", &excelize.Style{Font: &excelize.Font{Underline: "single"}})
		require.NoError(t, err)

		m, err := s.resolve(threeColumnFrame(t), NewCellRef("Sheet1", 0, 0), true)
		require.NoError(t, err)
		got, _ := m.Header(2)
		assert.Equal(t, byName, got)
		got, _ = m.Header(0)
		assert.Equal(t, generic, got)
	})

	t.Run("type name", func(t *testing.T) {
		t.Parallel()

		s, _ := newStyleFixture(t, StyleActionNamePrefix)
		dates, err := s.registry.create("prefix.Column.DateTime", &excelize.Style{NumFmt: 14})
		require.NoError(t, err)

		m, err := s.resolve(threeColumnFrame(t), NewCellRef("Sheet1", 0, 0), false)
		require.NoError(t, err)
		got, _ := m.Data(1)
		assert.Equal(t, dates, got)
		_, ok := m.Header(1)
		assert.False(t, ok, "no header styles without a header row")
	})

	t.Run("fallback warns", func(t *testing.T) {
		t.Parallel()

		s, logs := newStyleFixture(t, StyleActionNamePrefix)
		m, err := s.resolve(threeColumnFrame(t), NewCellRef("Sheet1", 0, 0), true)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			got, ok := m.Data(i)
			require.True(t, ok)
			assert.Equal(t, fallbackStyleID, got)
		}
		assert.Contains(t, logs.String(), "no named style found")
		assert.Contains(t, logs.String(), "prefix.Column.amount")
	})
}

func TestStyleResolver_Builtin(t *testing.T) {
	t.Parallel()

	s, _ := newStyleFixture(t, StyleActionBuiltin)
	m, err := s.resolve(threeColumnFrame(t), NewCellRef("Sheet1", 0, 0), true)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, ok := m.Header(i)
		require.True(t, ok)
		assert.Equal(t, s.palette.header, got)
	}
	got, _ := m.Data(0)
	assert.Equal(t, s.palette.data, got)
	got, _ = m.Data(1)
	assert.Equal(t, s.palette.date, got)
	got, _ = m.Data(2)
	assert.Equal(t, s.palette.data, got)

	style, err := s.file.GetStyle(s.palette.date)
	require.NoError(t, err)
	require.NotNil(t, style.CustomNumFmt)
	assert.True(t, isDateFormatCode(*style.CustomNumFmt))
}

func TestStyleResolver_Reuse(t *testing.T) {
	t.Parallel()

	s, _ := newStyleFixture(t, StyleActionReuse)
	header, err := s.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	require.NoError(t, err)
	data, err := s.file.NewStyle(&excelize.Style{NumFmt: 3})
	require.NoError(t, err)
	require.NoError(t, s.file.SetCellStyle("Sheet1", "D3", "D3", header))
	require.NoError(t, s.file.SetCellStyle("Sheet1", "D4", "D4", data))

	anchor := NewCellRef("Sheet1", 2, 1)
	m, err := s.resolve(threeColumnFrame(t), anchor, true)
	require.NoError(t, err)
	got, _ := m.Header(2)
	assert.Equal(t, header, got)
	got, _ = m.Data(2)
	assert.Equal(t, data, got)

	m, err = s.resolve(threeColumnFrame(t), anchor, false)
	require.NoError(t, err)
	got, _ = m.Data(2)
	assert.Equal(t, header, got, "without a header the first data row is the anchor row")
}

func TestStyleResolver_NoneAndUnknown(t *testing.T) {
	t.Parallel()

	s, _ := newStyleFixture(t, StyleActionNone)
	m, err := s.resolve(threeColumnFrame(t), NewCellRef("Sheet1", 0, 0), true)
	require.NoError(t, err)
	_, ok := m.Header(0)
	assert.False(t, ok)
	_, ok = m.Data(0)
	assert.False(t, ok)

	s.action = StyleAction(9)
	_, err = s.resolve(threeColumnFrame(t), NewCellRef("Sheet1", 0, 0), true)
	require.ErrorIs(t, err, ErrUnsupportedStyleAction)
}

func TestStylePalette_ForType(t *testing.T) {
	t.Parallel()

	p := stylePalette{header: 1, data: 2, date: 3}
	for _, dt := range []DataType{Boolean, Numeric, String} {
		got, err := p.forType(dt)
		require.NoError(t, err)
		assert.Equal(t, 2, got)
	}
	got, err := p.forType(DateTime)
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	_, err = p.forType(DataType(17))
	require.ErrorIs(t, err, ErrUnknownDataType)
}

func TestStyleAction_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		action StyleAction
		want   string
	}{
		{StyleActionBuiltin, "builtin"},
		{StyleActionReuse, "reuse"},
		{StyleActionNamePrefix, "name-prefix"},
		{StyleActionNone, "none"},
		{StyleAction(7), "StyleAction(7)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.action.String())
		})
	}
}
