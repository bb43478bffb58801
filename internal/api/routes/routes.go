package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/kylerivers/motorev-sub004/internal/api/handlers"
	"github.com/kylerivers/motorev-sub004/internal/api/middleware"
	"github.com/kylerivers/motorev-sub004/internal/auth"
	"github.com/kylerivers/motorev-sub004/internal/realtime"
)

type Router struct {
	engine      *gin.Engine
	wsHandler   *handlers.WSHandler
	verifier    *auth.Verifier
	hub         *realtime.Hub
	db          *gorm.DB
	redisClient *redis.Client
}

func NewRouter(
	hub *realtime.Hub,
	verifier *auth.Verifier,
	db *gorm.DB,
	redisClient *redis.Client,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Router{
		engine:      engine,
		wsHandler:   handlers.NewWSHandler(hub),
		verifier:    verifier,
		hub:         hub,
		db:          db,
		redisClient: redisClient,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", r.healthz)

	api := r.engine.Group("/api/v1")
	api.GET("/ws", middleware.WSAuth(r.verifier), r.wsHandler.HandleWebSocket)
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

func (r *Router) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	dbStatus := "ok"
	if sqlDB, err := r.db.DB(); err != nil {
		dbStatus = err.Error()
		status = http.StatusServiceUnavailable
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = err.Error()
		status = http.StatusServiceUnavailable
	}

	redisStatus := "ok"
	if err := r.redisClient.Ping(ctx).Err(); err != nil {
		redisStatus = err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"database": dbStatus,
		"redis":    redisStatus,
		"online":   r.hub.OnlineCount(),
		"rooms":    r.hub.RoomCount(),
	})
}
