package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-daily-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-daily-scheduler/pkg/errors"
)

type dayReaderStub struct {
	rows []models.DailySchedule
	err  error
}

func (s dayReaderStub) DaySchedule(ctx context.Context, date string) ([]models.DailySchedule, error) {
	return s.rows, s.err
}

func exportRows() []models.DailySchedule {
	original := "T1"
	return []models.DailySchedule{
		{PeriodNumber: 1, StartTime: "08:00", EndTime: "08:45", ClassID: "C1", Subject: "Mathematics", TeacherID: "T2",
			IsSubstitute: true, OriginalTeacherID: &original, RoomNumber: "Room 1-1", EnrolledCount: 30},
		{PeriodNumber: 2, StartTime: "08:45", EndTime: "09:30", ClassID: "C2", Subject: "Art", TeacherID: "T3",
			RoomNumber: "Room 2-2", EnrolledCount: 12},
	}
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(dayReaderStub{rows: exportRows()}, zap.NewNop(), nil, nil)

	result, err := svc.ExportDay(context.Background(), "2025-09-29", "CSV")
	require.NoError(t, err)

	assert.Equal(t, "schedule_2025-09-29.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)
	lines := strings.Split(strings.TrimSpace(string(result.Body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Period,Start,End,Class,Subject,Teacher,Substitute For,Room,Students", lines[0])
	assert.Equal(t, "1,08:00,08:45,C1,Mathematics,T2,T1,Room 1-1,30", lines[1])
	assert.Equal(t, "2,08:45,09:30,C2,Art,T3,,Room 2-2,12", lines[2])
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(dayReaderStub{rows: exportRows()}, nil, nil, nil)

	result, err := svc.ExportDay(context.Background(), "2025-09-29", "pdf")
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Body, []byte("%PDF")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(dayReaderStub{rows: exportRows()}, nil, nil, nil)

	_, err := svc.ExportDay(context.Background(), "2025-09-29", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServicePropagatesNotFound(t *testing.T) {
	svc := NewExportService(dayReaderStub{err: appErrors.Clone(appErrors.ErrNotFound, "no schedule stored")}, nil, nil, nil)

	_, err := svc.ExportDay(context.Background(), "2025-09-29", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBuildDayDatasetMarksSubstitutes(t *testing.T) {
	data := BuildDayDataset("2025-09-29", exportRows())

	assert.Equal(t, "Daily Schedule 2025-09-29", data.Title)
	assert.True(t, data.Marked[0])
	assert.False(t, data.Marked[1])
	assert.Equal(t, []string{"Scheduled: 2", "Substitutions: 1"}, data.Footer)
	assert.Equal(t, "T1", data.Rows[0]["Substitute For"])
}

func TestExportServiceWrapsReadErrors(t *testing.T) {
	svc := NewExportService(dayReaderStub{err: errors.New("boom")}, nil, nil, nil)

	_, err := svc.ExportDay(context.Background(), "2025-09-29", "csv")
	assert.EqualError(t, err, "boom")
}
