package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/justice-digital/incentives-engine/pkg/config"
	"github.com/justice-digital/incentives-engine/pkg/logger"
	"github.com/justice-digital/incentives-engine/pkg/middleware/requestid"
)

// Routes bundles every handler mounted on the engine's API surface.
type Routes struct {
	Reviews  *ReviewHandler
	Schedule *ScheduleHandler
	Summary  *SummaryHandler
	Kpi      *KpiHandler
	Reports  *ReportHandler

	Metrics http.Handler
}

// NewRouter builds the gin engine with middleware and all routes mounted
// under the configured API prefix.
func NewRouter(cfg *config.Config, log *zap.Logger, routes Routes) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if routes.Metrics != nil {
		r.GET("/metrics", gin.WrapH(routes.Metrics))
	}

	api := r.Group(cfg.APIPrefix)
	routes.Reviews.Register(api)
	routes.Schedule.Register(api)
	routes.Summary.Register(api)
	routes.Kpi.Register(api)
	routes.Reports.Register(api)

	return r
}
