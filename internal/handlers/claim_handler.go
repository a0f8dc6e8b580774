package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SURE-Trust/certificate-service/internal/services"
	"github.com/SURE-Trust/certificate-service/internal/utils"
)

type ClaimHandler struct {
	BaseHandler
	claimService services.ClaimService
}

func NewClaimHandler(claimService services.ClaimService, logger utils.Logger) *ClaimHandler {
	return &ClaimHandler{
		BaseHandler:  NewBaseHandler(logger),
		claimService: claimService,
	}
}

// ClaimStatus tells an anonymous visitor whether a code is claimable
// without exposing who holds it beyond the printed name.
func (h *ClaimHandler) ClaimStatus(c *gin.Context) {
	status, err := h.claimService.Status(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Claim attaches the certificate to the authenticated account. The
// submission email must match the account email.
func (h *ClaimHandler) Claim(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	h.LogRequest(c, "Claiming certificate", "code", c.Param("code"), "user_id", userID)

	cert, err := h.claimService.Claim(c.Request.Context(), c.Param("code"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cert)
}
