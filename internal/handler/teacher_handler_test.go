package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-lms/timetable-api/internal/dto"
	"github.com/campus-lms/timetable-api/internal/models"
)

type availabilityMock struct {
	checkResult *dto.AvailabilityResult
	listResult  *dto.AvailableTeachersResult
}

func (m *availabilityMock) Check(ctx context.Context, teacherID, classID string) (*dto.AvailabilityResult, error) {
	return m.checkResult, nil
}

func (m *availabilityMock) ListForClass(ctx context.Context, classID string) (*dto.AvailableTeachersResult, error) {
	return m.listResult, nil
}

type loadManagerMock struct {
	load *models.TeacherLoad
	sync *dto.LoadSyncResult
}

func (m *loadManagerMock) GetLoad(ctx context.Context, teacherID string) (*models.TeacherLoad, error) {
	return m.load, nil
}

func (m *loadManagerMock) SyncAll(ctx context.Context) (*dto.LoadSyncResult, error) {
	return m.sync, nil
}

func TestTeacherHandlerAvailability(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TeacherHandler{availability: &availabilityMock{
		checkResult: &dto.AvailabilityResult{TeacherID: "t1", ClassID: "class-1", Available: true, HoursLeft: 15.5},
	}}
	router := gin.New()
	router.GET("/teachers/:teacherId/availability", handler.Availability)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/teachers/t1/availability?classId=class-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data dto.AvailabilityResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Available)
	assert.InDelta(t, 15.5, envelope.Data.HoursLeft, 0.001)
}

func TestTeacherHandlerAvailabilityMissingClassID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TeacherHandler{availability: &availabilityMock{}}
	router := gin.New()
	router.GET("/teachers/:teacherId/availability", handler.Availability)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/teachers/t1/availability", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeacherHandlerAvailableForClass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TeacherHandler{availability: &availabilityMock{
		listResult: &dto.AvailableTeachersResult{TotalTeachers: 2, AvailableCount: 1},
	}}
	router := gin.New()
	router.GET("/classes/:classId/available-teachers", handler.AvailableForClass)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/classes/class-1/available-teachers", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestTeacherHandlerGetLoad(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TeacherHandler{loads: &loadManagerMock{
		load: &models.TeacherLoad{TeacherID: "t1", WeeklyHours: 10.5, MaxWeeklyHours: 20},
	}}
	router := gin.New()
	router.GET("/teacher-loads/:teacherId", handler.GetLoad)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/teacher-loads/t1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data models.TeacherLoad `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.InDelta(t, 10.5, envelope.Data.WeeklyHours, 0.001)
}

func TestTeacherHandlerSyncLoads(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TeacherHandler{loads: &loadManagerMock{
		sync: &dto.LoadSyncResult{TeachersUpdated: 3, TotalTeachers: 10, Errors: []string{}},
	}}
	router := gin.New()
	router.POST("/teacher-loads/sync", handler.SyncLoads)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/teacher-loads/sync", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data dto.LoadSyncResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 3, envelope.Data.TeachersUpdated)
	assert.Equal(t, 10, envelope.Data.TotalTeachers)
}
