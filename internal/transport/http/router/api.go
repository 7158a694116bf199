package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"go-gin-gorm-users/internal/core/config"
	"go-gin-gorm-users/internal/core/database"
	"go-gin-gorm-users/internal/feature/user"
	"go-gin-gorm-users/internal/transport/http/docs"
	"go-gin-gorm-users/internal/transport/http/ez"
	mdw "go-gin-gorm-users/internal/transport/http/middleware"
	resp "go-gin-gorm-users/internal/transport/http/response"
)

const APIPrefix = "/api/v1"

type Deps struct {
	Log    *zap.Logger
	DB     *gorm.DB
	Config *config.Config
	// Modules defaults to the user module.
	Modules []APIModule
}

func NewAPIEngine(d Deps) *gin.Engine {
	app := d.Config.App
	if app.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if sqlDB, err := d.DB.DB(); err == nil {
		reg.MustRegister(collectors.NewDBStatsCollector(sqlDB, d.Config.DB.Name))
	}
	metrics := mdw.NewMetrics(reg)

	r.Use(
		mdw.RequestID(),
		mdw.ProcessTime(),
		mdw.AccessLog(d.Log),
		mdw.Recovery(d.Log),
		mdw.CORS(app.HTTP.CORSOrigins),
		metrics.Middleware(),
		mdw.RateLimitPerIP(rate.Limit(app.HTTP.RateLimitRPS), app.HTTP.RateLimitBurst),
		mdw.Timeout(time.Duration(app.HTTP.RequestTimeoutSec)*time.Second),
		mdw.ConcurrencyLimit(app.HTTP.MaxInflight),
		mdw.MaxBodyBytes(app.HTTP.MaxBodyBytes),
	)

	r.NoRoute(func(c *gin.Context) { resp.Abort(c, resp.Error(resp.CodeNotFound, "")) })

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to " + app.Name,
			"version": app.Version,
			"docs":    docs.SwaggerUI,
			"redoc":   docs.ReDocUI,
		})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().Unix()})
	})
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.Ping(ctx, d.DB); err != nil {
			_ = c.Error(err)
			resp.Abort(c, resp.Error(resp.CodeUnavailable, "database unavailable"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metrics.Handler())

	book := docs.NewBuilder(app.Name, app.Version, "CRUD API for user accounts")
	book.Mount(r)

	mods := d.Modules
	if len(mods) == 0 {
		mods = []APIModule{user.NewModule()}
	}
	var registry Registry
	registry.Register(mods...)
	registry.MountAll(ez.New(r.Group(APIPrefix), d.DB, book))

	return r
}
