package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Teacher", "Class", "Amount"},
		Rows: []map[string]string{
			{"Teacher": "Teacher A", "Class": "Algebra 1", "Amount": "900"},
			{"Teacher": "Teacher A", "Class": "Algebra 2", "Amount": "1200"},
		},
		Footer: []map[string]string{
			{"Class": "Grand Total", "Amount": "2100"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Teacher,Class,Amount", lines[0])
	assert.Equal(t, "Teacher A,Algebra 1,900", lines[1])
	// Footer rows come last, missing cells render empty.
	assert.Equal(t, ",Grand Total,2100", lines[3])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "BIG BANG EXAM CARE", "Daily Class Bill 2025-03-05")
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}
