package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-lms/timetable-api/internal/dto"
	"github.com/campus-lms/timetable-api/internal/models"
	appErrors "github.com/campus-lms/timetable-api/pkg/errors"
)

type classTimetableStub struct {
	timetable *dto.ClassTimetable
}

func (s classTimetableStub) ClassTimetable(ctx context.Context, classID string) (*dto.ClassTimetable, error) {
	return s.timetable, nil
}

func sampleTimetable() *dto.ClassTimetable {
	return &dto.ClassTimetable{
		ScheduleID: "sched-1",
		ClassID:    "class-1",
		ClassName:  "L3 Info",
		Slots: []models.TimeSlotDetail{
			{
				TimeSlot:    models.TimeSlot{ID: "s1", TemplateID: "Monday-1", Classroom: "B101"},
				SubjectName: "Algorithms",
				TeacherName: "Teacher One",
			},
			{
				TimeSlot:    models.TimeSlot{ID: "s2", TemplateID: "Friday-4", Classroom: "Amphi A"},
				SubjectName: "Databases",
				TeacherName: "Teacher Two",
			},
		},
		TotalSlots:  2,
		HasSchedule: true,
	}
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(classTimetableStub{timetable: sampleTimetable()}, nil, "Weekly Timetable")

	payload, contentType, filename, err := svc.ExportClass(context.Background(), "class-1", "csv")
	require.NoError(t, err)

	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "timetable-l3-info.csv", filename)

	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)

	// 1 header row + 4 window rows, each with a time column and 5 day columns.
	require.Len(t, records, 5)
	assert.Equal(t, []string{"Time", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}, records[0])
	assert.Contains(t, records[1][1], "Algorithms")
	assert.Contains(t, records[4][5], "Teacher Two")
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(classTimetableStub{timetable: sampleTimetable()}, nil, "Weekly Timetable")

	payload, contentType, filename, err := svc.ExportClass(context.Background(), "class-1", "pdf")
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "timetable-l3-info.pdf", filename)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportServiceUnknownFormat(t *testing.T) {
	svc := NewExportService(classTimetableStub{timetable: sampleTimetable()}, nil, "")

	_, _, _, err := svc.ExportClass(context.Background(), "class-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "l3-info", sanitizeFilename("L3 Info"))
	assert.Equal(t, "class", sanitizeFilename("   "))
	assert.Equal(t, "class", sanitizeFilename("日本語"))
}
