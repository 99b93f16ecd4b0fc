package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/fraudsight/fraudsight/pkg/database"
	"github.com/fraudsight/fraudsight/pkg/graph"
	"github.com/fraudsight/fraudsight/pkg/supabase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type BaseHandler struct {
	logger   *zap.Logger
	db       *database.DB
	redis    *redis.Client
	graph    *graph.Store
	supabase *supabase.Client
}

func NewBaseHandler(logger *zap.Logger, db *database.DB, redisClient *redis.Client, graphStore *graph.Store, supabaseClient *supabase.Client) *BaseHandler {
	return &BaseHandler{logger: logger, db: db, redis: redisClient, graph: graphStore, supabase: supabaseClient}
}

func (b *BaseHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", b.GetRoot)
	r.GET("/health", b.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (b *BaseHandler) GetRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "fraudsight-api",
		"version": "1.0.0",
		"status":  "running",
	})
}

// GetHealth probes every backing store. Degraded components flip the overall
// status but the endpoint still answers 200 so orchestrators can read details.
func (b *BaseHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	components := gin.H{}
	status := "ok"

	check := func(name string, err error) {
		if err != nil {
			b.logger.Warn("health check failed", zap.String("component", name), zap.Error(err))
			components[name] = "unavailable"
			status = "degraded"
			return
		}
		components[name] = "ok"
	}

	check("postgres", b.db.Ping(ctx))
	check("redis", b.redis.Ping(ctx).Err())
	check("neo4j", b.graph.Ping(ctx))
	if b.supabase.Enabled() {
		check("supabase", b.supabase.Health(ctx))
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"components": components,
	})
}
