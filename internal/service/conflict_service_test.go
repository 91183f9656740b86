package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-lms/timetable-api/internal/models"
)

type conflictSlotStub struct {
	details []models.TimeSlotDetail
}

func (s conflictSlotStub) ListAllDetails(ctx context.Context) ([]models.TimeSlotDetail, error) {
	return s.details, nil
}

func detail(id, templateID, teacherID, classroom, classID string) models.TimeSlotDetail {
	return models.TimeSlotDetail{
		TimeSlot: models.TimeSlot{
			ID:         id,
			TemplateID: templateID,
			TeacherID:  teacherID,
			Classroom:  classroom,
		},
		ClassID: classID,
	}
}

func newConflictService(details []models.TimeSlotDetail) *ConflictService {
	return NewConflictService(conflictSlotStub{details: details}, nil, nil, nil, time.Minute)
}

func TestConflictServiceNoConflicts(t *testing.T) {
	svc := newConflictService([]models.TimeSlotDetail{
		detail("s1", "Monday-1", "t1", "B101", "c1"),
		detail("s2", "Monday-2", "t1", "B101", "c1"),
		detail("s3", "Monday-1", "t2", "B102", "c2"),
	})

	reports, err := svc.DetectAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestConflictServiceTeacherDoubleBooking(t *testing.T) {
	svc := newConflictService([]models.TimeSlotDetail{
		detail("s1", "Monday-1", "t1", "B101", "c1"),
		detail("s2", "Monday-1", "t1", "B102", "c2"),
	})

	reports, err := svc.DetectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)

	report := reports[0]
	assert.Equal(t, models.ConflictTypeTeacher, report.Type)
	assert.Equal(t, "t1", report.TeacherID)
	assert.Equal(t, "Monday-1", report.TemplateID)
	assert.Equal(t, "Monday", report.Day)
	assert.Equal(t, "08:30 - 10:00", report.Time)
	assert.Equal(t, 2, report.Count)
	assert.Len(t, report.Entries, 2)
}

func TestConflictServiceClassroomDoubleBooking(t *testing.T) {
	svc := newConflictService([]models.TimeSlotDetail{
		detail("s1", "Wednesday-3", "t1", "Amphi A", "c1"),
		detail("s2", "Wednesday-3", "t2", "Amphi A", "c2"),
	})

	reports, err := svc.DetectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)

	report := reports[0]
	assert.Equal(t, models.ConflictTypeClassroom, report.Type)
	assert.Equal(t, "Amphi A", report.Classroom)
	assert.Equal(t, "Wednesday", report.Day)
}

func TestConflictServiceIgnoresEmptyClassrooms(t *testing.T) {
	svc := newConflictService([]models.TimeSlotDetail{
		detail("s1", "Monday-1", "t1", "", "c1"),
		detail("s2", "Monday-1", "t2", "", "c2"),
	})

	reports, err := svc.DetectAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestConflictServiceDeterministicOrdering(t *testing.T) {
	details := []models.TimeSlotDetail{
		detail("s1", "Friday-4", "t1", "B101", "c1"),
		detail("s2", "Friday-4", "t1", "B102", "c2"),
		detail("s3", "Monday-1", "t2", "Lab Info 1", "c1"),
		detail("s4", "Monday-1", "t3", "Lab Info 1", "c2"),
	}
	svc := newConflictService(details)

	first, err := svc.DetectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)

	// Monday precedes Friday regardless of scan order.
	assert.Equal(t, "Monday-1", first[0].TemplateID)
	assert.Equal(t, "Friday-4", first[1].TemplateID)

	second, err := newConflictService(details).DetectAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestConflictServiceBothTypesAtSameTemplate(t *testing.T) {
	svc := newConflictService([]models.TimeSlotDetail{
		detail("s1", "Monday-1", "t1", "B101", "c1"),
		detail("s2", "Monday-1", "t1", "B101", "c2"),
	})

	reports, err := svc.DetectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	types := []string{reports[0].Type, reports[1].Type}
	assert.Contains(t, types, models.ConflictTypeTeacher)
	assert.Contains(t, types, models.ConflictTypeClassroom)
}
