package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/immxrtalbeast/callrelay/internal/api/http/converter"
	"github.com/immxrtalbeast/callrelay/internal/service"
)

type StatusController struct {
	status      service.StatusReader
	stunServers []string
	now         func() time.Time
}

func NewStatusController(status service.StatusReader, stunServers []string) *StatusController {
	return &StatusController{
		status:      status,
		stunServers: stunServers,
		now:         time.Now,
	}
}

func (c *StatusController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, converter.HealthToApi(c.status.Stats(), c.now()))
}

func (c *StatusController) Users(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, converter.UsersToApi(c.status.ConnectedUsers()))
}

func (c *StatusController) ICEServers(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, converter.ICEServersToApi(c.stunServers))
}
