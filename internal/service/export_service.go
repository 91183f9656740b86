package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campus-lms/timetable-api/internal/dto"
	"github.com/campus-lms/timetable-api/internal/models"
	appErrors "github.com/campus-lms/timetable-api/pkg/errors"
	"github.com/campus-lms/timetable-api/pkg/export"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type classTimetableProvider interface {
	ClassTimetable(ctx context.Context, classID string) (*dto.ClassTimetable, error)
}

// ExportService renders a class timetable to a downloadable document. Exports
// are synchronous: the grid is 20 cells, there is nothing to queue.
type ExportService struct {
	timetables classTimetableProvider
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
	title      string
}

// NewExportService wires the timetable exporter.
func NewExportService(timetables classTimetableProvider, logger *zap.Logger, title string) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if title == "" {
		title = "Weekly Timetable"
	}
	return &ExportService{
		timetables: timetables,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
		title:      title,
	}
}

// ExportClass renders one class's timetable in the requested format and
// returns the document bytes, its content type and a suggested filename.
func (s *ExportService) ExportClass(ctx context.Context, classID, format string) ([]byte, string, string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != FormatCSV && format != FormatPDF {
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	timetable, err := s.timetables.ClassTimetable(ctx, classID)
	if err != nil {
		return nil, "", "", err
	}

	grid := s.buildGrid(timetable)

	var payload []byte
	var contentType string
	switch format {
	case FormatCSV:
		payload, err = s.csv.RenderGrid(grid)
		contentType = "text/csv"
	case FormatPDF:
		payload, err = s.pdf.RenderGrid(grid)
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("timetable-%s.%s", sanitizeFilename(timetable.ClassName), format)
	s.logger.Info("timetable exported",
		zap.String("class_id", classID),
		zap.String("format", format),
		zap.Int("bytes", len(payload)),
	)
	return payload, contentType, filename, nil
}

// buildGrid lays the class's slots out as windows by days, cells holding
// "Subject\nTeacher\nRoom" text.
func (s *ExportService) buildGrid(timetable *dto.ClassTimetable) export.Grid {
	windows := make([]string, 0, models.WindowsPerDay)
	for _, tpl := range models.Grid()[:models.WindowsPerDay] {
		windows = append(windows, tpl.Label())
	}

	cells := make([][]string, len(windows))
	for i := range cells {
		cells[i] = make([]string, len(models.Weekdays))
	}

	for _, slot := range timetable.Slots {
		tpl, ok := models.TemplateByID(slot.TemplateID)
		if !ok {
			continue
		}
		cells[tpl.Window][tpl.DayIndex] = fmt.Sprintf("%s\n%s\n%s", slot.SubjectName, slot.TeacherName, slot.Classroom)
	}

	return export.Grid{
		Title:   fmt.Sprintf("%s - %s", s.title, timetable.ClassName),
		Days:    models.Weekdays,
		Windows: windows,
		Cells:   cells,
	}
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return "class"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "class"
	}
	return b.String()
}
