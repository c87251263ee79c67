package http

import "github.com/gin-gonic/gin"

// Register registers the alarm reason routes
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/runs", h.CreateRun)
	rg.GET("/runs", h.ListRuns)
	rg.GET("/runs/latest", h.LatestRun)
	rg.GET("/runs/:id", h.GetRun)
	rg.GET("/results/:usecase/:ppid/:tagname/:date", h.GetResult)
}
