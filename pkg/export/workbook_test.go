package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestNewWorkbookRoundTrip(t *testing.T) {
	f, err := NewWorkbook([]SheetSpec{
		{Title: "Summary", Header: []string{"Metric", "Value"}, Rows: [][]string{{"payments", "3"}}},
		{Title: "Payments", Header: []string{"Ref", "Amount"}, Rows: [][]string{{"pi_1", "120.00"}, {"pi_2", "80.00"}}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	read, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer read.Close()

	assert.Equal(t, []string{"Summary", "Payments"}, read.GetSheetList())

	rows, err := read.GetRows("Payments")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Ref", "Amount"}, {"pi_1", "120.00"}, {"pi_2", "80.00"}}, rows)
}

func TestNewWorkbookRequiresSheet(t *testing.T) {
	_, err := NewWorkbook(nil)
	assert.Error(t, err)
}
