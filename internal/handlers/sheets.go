package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"livey-backend/internal/errs"
	"livey-backend/internal/models"
	"livey-backend/internal/services"
)

const settingsPath = "/dashboard/settings"

type SheetsHandler struct {
	sheets      SheetsService
	frontendURL string
	log         *zap.Logger
}

func NewSheetsHandler(sheets SheetsService, frontendURL string, log *zap.Logger) *SheetsHandler {
	return &SheetsHandler{sheets: sheets, frontendURL: strings.TrimRight(frontendURL, "/"), log: log}
}

// Connect godoc
// @Summary     Start Google Sheets authorization
// @Description Returns the Google consent URL bound to the authenticated seller.
// @Tags        sheets
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.SheetsConnectResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /sheets/connect [get]
func (h *SheetsHandler) Connect(c *gin.Context) {
	sellerID, ok := currentSeller(c)
	if !ok {
		return
	}

	authURL, err := h.sheets.Connect(c.Request.Context(), sellerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.SheetsConnectResponse{AuthURL: authURL})
}

// Callback godoc
// @Summary     Google OAuth callback
// @Description Completes authorization and redirects to the dashboard settings page.
// @Tags        sheets
// @Param       code  query string false "Authorization code"
// @Param       state query string false "State token"
// @Param       error query string false "Provider error"
// @Success     302
// @Router      /sheets/callback [get]
func (h *SheetsHandler) Callback(c *gin.Context) {
	marker := h.sheets.CompleteAuthorization(c.Request.Context(), services.CallbackParams{
		Code:  c.Query("code"),
		State: c.Query("state"),
		Error: c.Query("error"),
	})

	q := url.Values{}
	if marker == "" {
		q.Set("sheets", "connected")
	} else {
		q.Set("sheets_error", marker)
	}
	c.Redirect(http.StatusFound, h.frontendURL+settingsPath+"?"+q.Encode())
}

// Status godoc
// @Summary     Google Sheets connection status
// @Tags        sheets
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.SheetsStatusResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /sheets/status [get]
func (h *SheetsHandler) Status(c *gin.Context) {
	sellerID, ok := currentSeller(c)
	if !ok {
		return
	}

	st, err := h.sheets.Status(c.Request.Context(), sellerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Test godoc
// @Summary     Test the Google Sheets connection
// @Description Reads the spreadsheet title. A revoked grant or deleted spreadsheet removes the connection.
// @Tags        sheets
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.SheetsTestResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     429 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /sheets/test [post]
func (h *SheetsHandler) Test(c *gin.Context) {
	sellerID, ok := currentSeller(c)
	if !ok {
		return
	}

	res, err := h.sheets.Test(c.Request.Context(), sellerID)
	if err == nil {
		c.JSON(http.StatusOK, res)
		return
	}

	kind, external := errs.KindOf(err)
	if !external {
		respondError(c, h.log, err)
		return
	}
	switch kind {
	case errs.KindRevoked:
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Google authorization revoked",
			Message: "Please reconnect Google Sheets",
			Code:    "token_revoked",
		})
	case errs.KindNotFound:
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "Spreadsheet not found",
			Message: "The spreadsheet was deleted or is no longer accessible. Please reconnect Google Sheets",
			Code:    "sheet_deleted",
		})
	case errs.KindQuota:
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
			Error:   "Google Sheets quota exceeded",
			Message: "Please try again in a few minutes",
			Code:    kind.String(),
		})
	default:
		h.log.Error("sheets connection test failed", zap.String("seller_id", sellerID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Connection test failed"})
	}
}

// Disconnect godoc
// @Summary     Disconnect Google Sheets
// @Tags        sheets
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.SuccessResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /sheets/disconnect [delete]
func (h *SheetsHandler) Disconnect(c *gin.Context) {
	sellerID, ok := currentSeller(c)
	if !ok {
		return
	}

	res, err := h.sheets.Disconnect(c.Request.Context(), sellerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
