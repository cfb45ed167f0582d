package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CronHandler struct {
	sweeper Sweeper
	log     *zap.Logger
}

func NewCronHandler(sweeper Sweeper, log *zap.Logger) *CronHandler {
	return &CronHandler{sweeper: sweeper, log: log}
}

// SyncSheets godoc
// @Summary     Retry failed sheet syncs
// @Description Scheduler endpoint. Retries one batch of unsynced orders whose backoff has elapsed.
// @Tags        cron
// @Produce     json
// @Param       x-cron-secret header string false "Cron secret (or Authorization: Bearer)"
// @Success     200 {object} models.SweepResult
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /cron/sync-sheets [post]
func (h *CronHandler) SyncSheets(c *gin.Context) {
	res, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
