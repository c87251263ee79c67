package routes

import (
	"github.com/gin-gonic/gin"

	arhttp "github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/http"
)

type V1Deps struct {
	AlarmReasons arhttp.Service
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")

	arhttp.New(dep.AlarmReasons).Register(api.Group("/alarm-reasons"))
}
