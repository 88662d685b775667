package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Daily schedule 2025-09-29",
		Headers: []string{"Period", "Class", "Teacher"},
		Rows: []map[string]string{
			{"Period": "1", "Class": "Algebra A", "Teacher": "T1"},
			{"Period": "BREAK"},
			{"Period": "2", "Class": "Biology, Lab", "Teacher": "T2"},
		},
		Marked: map[int]bool{2: true},
		Footer: []string{"Substitutions: 1"},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	assert.Equal(t, "Period,Class,Teacher\n1,Algebra A,T1\nBREAK,,\n2,\"Biology, Lab\",T2\n", string(out))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := sampleDataset()
	data.Headers = append(data.Headers, "Start", "End", "Room", "Substitute")

	out, err := NewPDFExporter().Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Equal(t, "application/pdf", NewPDFExporter().ContentType())
}
