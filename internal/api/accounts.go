package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AccountHandler serves read-only account views.
type AccountHandler struct {
	svc AccountService
	log *logrus.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(svc AccountService, log *logrus.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, log: log}
}

// Get handles GET /api/v1/accounts/:username.
func (h *AccountHandler) Get(c *gin.Context) {
	summary, err := h.svc.GetAccountSummary(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondServiceError(c, h.log, err, "getting account summary")
		return
	}

	c.JSON(http.StatusOK, summary)
}
