package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRender(t *testing.T) {
	exporter := NewCSVExporter()

	payload, err := exporter.Render(Table{
		Headers: []string{"Day", "Overdue"},
		Rows: [][]string{
			{"2026-06-01", "3"},
			{"2026-06-02", "2"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "Day,Overdue\n2026-06-01,3\n2026-06-02,2\n", string(payload))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Table{})

	assert.Error(t, err)
}

func TestCSVRenderPadsShortRows(t *testing.T) {
	exporter := NewCSVExporter()

	payload, err := exporter.Render(Table{
		Headers: []string{"A", "B", "C"},
		Rows:    [][]string{{"1"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "A,B,C\n1,,\n", string(payload))
}
