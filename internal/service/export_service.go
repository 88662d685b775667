package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-daily-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-daily-scheduler/pkg/errors"
	"github.com/noah-isme/sma-daily-scheduler/pkg/export"
)

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var scheduleExportHeaders = []string{"Period", "Start", "End", "Class", "Subject", "Teacher", "Substitute For", "Room", "Students"}

type dayScheduleReader interface {
	DaySchedule(ctx context.Context, date string) ([]models.DailySchedule, error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportResult is a rendered document ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders stored day schedules as downloadable timetables.
type ExportService struct {
	schedules dayScheduleReader
	renderers map[string]renderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(schedules dayScheduleReader, logger *zap.Logger, csv, pdf renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		schedules: schedules,
		renderers: map[string]renderer{ExportFormatCSV: csv, ExportFormatPDF: pdf},
		logger:    logger,
	}
}

// ExportDay renders the stored schedule of a date in the requested format.
func (s *ExportService) ExportDay(ctx context.Context, date, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	rows, err := s.schedules.DaySchedule(ctx, date)
	if err != nil {
		return nil, err
	}

	body, err := r.Render(BuildDayDataset(date, rows))
	if err != nil {
		s.logger.Error("render schedule export", zap.String("date", date), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule export")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("schedule_%s.%s", date, r.Extension()),
		ContentType: r.ContentType(),
		Body:        body,
	}, nil
}

// BuildDayDataset lays out a day's rows as a timetable with substitutions marked.
func BuildDayDataset(date string, rows []models.DailySchedule) export.Dataset {
	data := export.Dataset{
		Title:    "Daily Schedule " + date,
		Subtitle: "Generated timetable with substitutions highlighted",
		Headers:  scheduleExportHeaders,
		Rows:     make([]map[string]string, 0, len(rows)),
		Marked:   make(map[int]bool),
	}
	substitutions := 0
	for i, row := range rows {
		original := ""
		if row.IsSubstitute {
			substitutions++
			data.Marked[i] = true
			if row.OriginalTeacherID != nil {
				original = *row.OriginalTeacherID
			}
		}
		data.Rows = append(data.Rows, map[string]string{
			"Period":         strconv.Itoa(row.PeriodNumber),
			"Start":          row.StartTime,
			"End":            row.EndTime,
			"Class":          row.ClassID,
			"Subject":        row.Subject,
			"Teacher":        row.TeacherID,
			"Substitute For": original,
			"Room":           row.RoomNumber,
			"Students":       strconv.Itoa(row.EnrolledCount),
		})
	}
	data.Footer = []string{
		fmt.Sprintf("Scheduled: %d", len(rows)),
		fmt.Sprintf("Substitutions: %d", substitutions),
	}
	return data
}
