package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"lattes-dw/config"
	"lattes-dw/models"
	"lattes-dw/pipeline"
	"lattes-dw/storage"
	"lattes-dw/validation"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" || c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenFromConfig(cfg)
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.", zap.String("driver", cfg.DBDriver))

	logging.Info("Running database auto-migration...")
	if err := storage.Migrate(ctx, db, storage.SchemasFromConfig(cfg), cfg.DBDriver == config.DriverSQLite); err != nil {
		logging.Fatal("Migration failed", zap.Error(err))
	}

	svc, err := pipeline.NewService(ctx, cfg, db, logging, prometheus.DefaultRegisterer)
	if err != nil {
		logging.Fatal("Pipeline setup failed", zap.Error(err))
	}

	router := newRouter(cfg, svc, logging)

	// Setup Cron
	cronScheduler := cron.New()
	if cfg.CronSchedule != "" {
		_, err := cronScheduler.AddFunc(cfg.CronSchedule, func() {
			logging.Info("Running scheduled warehouse load...")
			if _, err := svc.Runner.Run(ctx, "cron"); err != nil {
				logging.Error("Scheduled load failed", zap.Error(err))
			}
		})
		if err != nil {
			logging.Fatal("Invalid CRON_SCHEDULE", zap.String("schedule", cfg.CronSchedule), zap.Error(err))
		}
		cronScheduler.Start()
		defer cronScheduler.Stop()
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error("Server shutdown failed", zap.Error(err))
		}
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func newRouter(cfg *config.Config, svc *pipeline.Service, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/healthz", func(c *gin.Context) {
		if err := storage.Ping(c.Request.Context(), svc.DB); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	setupPipelineRoutes(router, svc, log)
	setupValidationRoutes(router, svc.Validator, log)
	return router
}

func setupPipelineRoutes(router *gin.Engine, svc *pipeline.Service, log *zap.Logger) {
	rg := router.Group("/pipeline")

	// The run outlives the request, so it gets its own context.
	rg.POST("/run", func(c *gin.Context) {
		err := svc.Runner.Start(context.Background(), "api", func(run *models.PipelineRun, err error) {
			if err != nil {
				log.Error("Triggered load failed", zap.Error(err))
			}
		})
		if errors.Is(err, pipeline.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "started"})
	})

	rg.GET("/steps", func(c *gin.Context) {
		order, err := svc.Runner.Graph().Order()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		type stepView struct {
			Name      string   `json:"name"`
			DependsOn []string `json:"depends_on"`
		}
		out := make([]stepView, len(order))
		for i, s := range order {
			out[i] = stepView{Name: s.Name, DependsOn: s.DependsOn}
		}
		c.JSON(http.StatusOK, out)
	})

	rg.POST("/steps/:name", func(c *gin.Context) {
		out, err := svc.Runner.RunStep(c.Request.Context(), c.Param("name"))
		switch {
		case errors.Is(err, pipeline.ErrUnknownStep):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, pipeline.ErrRunInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case err != nil:
			log.Error("Step failed", zap.String("step", c.Param("name")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		case out == nil:
			c.JSON(http.StatusOK, gin.H{"status": "done"})
		default:
			c.JSON(http.StatusOK, out)
		}
	})

	rg.GET("/runs", func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if err != nil || limit <= 0 || limit > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		var runs []models.PipelineRun
		err = svc.DB.WithContext(c.Request.Context()).
			Omit("report").
			Order("id desc").
			Limit(limit).
			Find(&runs).Error
		if err != nil {
			log.Error("Database query for runs failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, runs)
	})

	rg.GET("/runs/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}
		var run models.PipelineRun
		err = svc.DB.WithContext(c.Request.Context()).First(&run, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		if err != nil {
			log.Error("Database query for run failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, run)
	})
}

// Concurrent report requests share one validation pass.
func setupValidationRoutes(router *gin.Engine, validator *validation.Validator, log *zap.Logger) {
	var group singleflight.Group

	router.GET("/validation", func(c *gin.Context) {
		v, err, _ := group.Do("report", func() (any, error) {
			return validator.Run(context.WithoutCancel(c.Request.Context()))
		})
		if err != nil {
			log.Error("Validation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		report := v.(*validation.Report)
		if c.Query("format") == "text" {
			c.String(http.StatusOK, report.String())
			return
		}
		c.JSON(http.StatusOK, report)
	})
}
