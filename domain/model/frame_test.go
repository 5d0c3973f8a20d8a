package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustColumn(t *testing.T, dt DataType, values ...any) *Column {
	t.Helper()
	col, err := NewColumn(dt, values)
	require.NoError(t, err)
	return col
}

func TestDataFrame_AddColumn(t *testing.T) {
	t.Parallel()

	t.Run("first column establishes row count", func(t *testing.T) {
		t.Parallel()
		df := NewDataFrame()
		assert.True(t, df.IsEmpty())

		require.NoError(t, df.AddColumn("Letter", mustColumn(t, String, "A", "B", "C")))
		require.NoError(t, df.AddColumn("Value", mustColumn(t, Numeric, 1.0, nil, 3.0)))

		assert.False(t, df.IsEmpty())
		assert.Equal(t, 2, df.ColumnCount())
		assert.Equal(t, 3, df.RowCount())
		assert.Equal(t, "Value", df.Name(1))
		assert.Equal(t, Numeric, df.Type(1))
		assert.Equal(t, []string{"Letter", "Value"}, df.Names())
	})

	t.Run("length mismatch", func(t *testing.T) {
		t.Parallel()
		df := NewDataFrame()
		require.NoError(t, df.AddColumn("a", mustColumn(t, Boolean, true, false)))
		err := df.AddColumn("b", mustColumn(t, Boolean, true))
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		assert.Equal(t, 1, df.ColumnCount())
	})

	t.Run("nil column", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, NewDataFrame().AddColumn("a", nil), ErrDimensionMismatch)
	})
}

func TestDataFrame_HasHeader(t *testing.T) {
	t.Parallel()

	df := NewDataFrame()
	require.NoError(t, df.AddColumn("", mustColumn(t, Numeric, 1.0)))
	assert.False(t, df.HasHeader())

	require.NoError(t, df.AddColumn("named", mustColumn(t, Numeric, 2.0)))
	assert.True(t, df.HasHeader())

	col, ok := df.ColumnByName("named")
	require.True(t, ok)
	assert.Equal(t, 2.0, col.Number(0))

	_, ok = df.ColumnByName("absent")
	assert.False(t, ok)
}
