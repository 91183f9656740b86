package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campus-lms/timetable-api/api/swagger"
	"github.com/campus-lms/timetable-api/internal/handler"
	"github.com/campus-lms/timetable-api/internal/middleware"
	"github.com/campus-lms/timetable-api/internal/repository"
	"github.com/campus-lms/timetable-api/internal/service"
	"github.com/campus-lms/timetable-api/pkg/cache"
	"github.com/campus-lms/timetable-api/pkg/config"
	"github.com/campus-lms/timetable-api/pkg/database"
	"github.com/campus-lms/timetable-api/pkg/logger"
	corsmiddleware "github.com/campus-lms/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-lms/timetable-api/pkg/middleware/requestid"
)

// @title Campus Timetable API
// @version 1.0.0
// @description Weekly timetable allocation and conflict-detection engine
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck

	classRepo := repository.NewClassRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	loadRepo := repository.NewTeacherLoadRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	loadSvc := service.NewLoadService(db, teacherRepo, timetableRepo, loadRepo, logr, cfg.Scheduler.DefaultMaxWeeklyHours)
	generatorSvc := service.NewGeneratorService(
		classRepo, subjectRepo, timetableRepo, loadSvc, timetableRepo, cacheRepo, metricsSvc, validate, logr,
		service.GeneratorConfig{
			MinPopulatedSlots: cfg.Scheduler.MinPopulatedSlots,
			FallbackClassroom: cfg.Scheduler.FallbackClassroom,
			SmartModeDefault:  cfg.Scheduler.SmartModeDefault,
		},
	)
	availabilitySvc := service.NewAvailabilityService(
		db, teacherRepo, classRepo, timetableRepo, loadSvc, cacheRepo, metricsSvc, logr, cfg.Scheduler.AvailabilityCacheTTL,
	)
	conflictSvc := service.NewConflictService(timetableRepo, cacheRepo, metricsSvc, logr, cfg.Scheduler.ConflictCacheTTL)
	timetableSvc := service.NewTimetableService(timetableRepo, classRepo, teacherRepo, subjectRepo, loadSvc, timetableRepo, cacheRepo, validate, logr)
	exportSvc := service.NewExportService(timetableSvc, logr, cfg.Exports.Title)

	timetableHandler := handler.NewTimetableHandler(generatorSvc, timetableSvc, conflictSvc, exportSvc)
	teacherHandler := handler.NewTeacherHandler(availabilitySvc, loadSvc)
	slotHandler := handler.NewSlotHandler(timetableSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/timetables/generate", timetableHandler.Generate)
		api.GET("/timetables/class/:classId", timetableHandler.ClassTimetable)
		api.GET("/timetables/teacher/:teacherId", timetableHandler.TeacherTimetable)
		api.GET("/timetables/conflicts", timetableHandler.Conflicts)
		if cfg.Exports.Enabled {
			api.GET("/timetables/class/:classId/export", timetableHandler.Export)
		}

		api.GET("/teachers/:teacherId/availability", teacherHandler.Availability)
		api.GET("/classes/:classId/available-teachers", teacherHandler.AvailableForClass)
		api.GET("/teacher-loads/:teacherId", teacherHandler.GetLoad)
		api.POST("/teacher-loads/sync", teacherHandler.SyncLoads)

		api.POST("/slots", slotHandler.Create)
		api.PUT("/slots/:id", slotHandler.Update)
		api.DELETE("/slots/:id", slotHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
