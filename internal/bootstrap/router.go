package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	arhttp "github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/http"
	httpapi "github.com/SickoOrange/SimpleAndReason/internal/api/http"
	"github.com/SickoOrange/SimpleAndReason/internal/api/http/middleware"
	"github.com/SickoOrange/SimpleAndReason/internal/api/http/routes"
	"github.com/SickoOrange/SimpleAndReason/internal/metrics"
)

type RouterDeps struct {
	ServiceName  string
	Version      string
	DB           httpapi.Pinger
	Redis        httpapi.Pinger
	Metrics      *metrics.Registry
	AlarmReasons arhttp.Service
	// AllowOrigins defaults to every origin.
	AllowOrigins []string
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())

	corsCfg := cors.DefaultConfig()
	if len(dep.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = dep.AllowOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AddAllowHeaders(middleware.RequestIDHeader)
	corsCfg.AddExposeHeaders(middleware.RequestIDHeader)
	r.Use(cors.New(corsCfg))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	if dep.Metrics != nil {
		r.GET("/metrics", gin.WrapH(dep.Metrics.Handler()))
	}

	routes.RegisterV1(r, routes.V1Deps{AlarmReasons: dep.AlarmReasons})

	return r
}
