package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/services"
	"github.com/SURE-Trust/certificate-service/internal/utils"
)

type CertificateHandler struct {
	BaseHandler
	certificateService  services.CertificateService
	verificationService services.VerificationService
}

func NewCertificateHandler(
	certificateService services.CertificateService,
	verificationService services.VerificationService,
	logger utils.Logger,
) *CertificateHandler {
	return &CertificateHandler{
		BaseHandler:         NewBaseHandler(logger),
		certificateService:  certificateService,
		verificationService: verificationService,
	}
}

// GenerateCertificate accepts a raw form-shaped payload and runs the full
// issuance pipeline. Keys may be form question titles or canonical names.
func (h *CertificateHandler) GenerateCertificate(c *gin.Context) {
	var rawFields map[string]any
	if err := c.ShouldBindJSON(&rawFields); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Generating certificate")

	cert, err := h.certificateService.Generate(c.Request.Context(), rawFields)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cert)
}

// VerifyCertificate is the public verification endpoint. Unknown codes are
// a 200 with verified=false; the attempt is logged either way.
func (h *CertificateHandler) VerifyCertificate(c *gin.Context) {
	code := c.Param("code")

	meta := services.ClientMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	result, err := h.verificationService.Verify(c.Request.Context(), code, meta)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetCertificate is readable by admins and by the claiming owner.
func (h *CertificateHandler) GetCertificate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	cert, err := h.certificateService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if !h.canAccess(c, cert) {
		return
	}
	c.JSON(http.StatusOK, cert)
}

// canAccess enforces owner-or-admin on a loaded certificate. Writes the
// 403 itself when access is denied.
func (h *CertificateHandler) canAccess(c *gin.Context, cert *services.CertificateResponse) bool {
	if role, err := GetUserRoleFromContext(c); err == nil && role == models.RoleAdmin {
		return true
	}
	userID, _ := c.Get("user_id")
	if id, ok := userID.(uint); ok && cert.UserID != nil && *cert.UserID == id {
		return true
	}
	c.JSON(http.StatusForbidden, ErrorResponse{Message: "Access denied"})
	return false
}

func (h *CertificateHandler) ListCertificates(c *gin.Context) {
	// "limit" and "status=active|inactive" are accepted as aliases for
	// size and is_active.
	size := h.parseIntQuery(c, "size", 0)
	if size == 0 {
		size = h.parseIntQuery(c, "limit", 20)
	}
	isActive := h.parseBoolQueryPtr(c, "is_active")
	if isActive == nil {
		switch c.Query("status") {
		case "active":
			active := true
			isActive = &active
		case "inactive":
			active := false
			isActive = &active
		}
	}

	req := &services.ListCertificatesRequest{
		Type:      c.Query("type"),
		Batch:     c.Query("batch"),
		Search:    c.Query("search"),
		IsActive:  isActive,
		Page:      h.parseIntQuery(c, "page", 1),
		Size:      size,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	list, err := h.certificateService.List(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// DeactivateCertificate revokes a certificate. The record stays readable
// through GetCertificate; only verification stops working.
func (h *CertificateHandler) DeactivateCertificate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deactivating certificate", "certificate_id", id)

	if err := h.certificateService.Deactivate(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Certificate deactivated"})
}

func (h *CertificateHandler) ReactivateCertificate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.certificateService.Reactivate(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Certificate reactivated"})
}

func (h *CertificateHandler) DownloadPDF(c *gin.Context) {
	h.serveArtifact(c, "pdf", "application/pdf")
}

func (h *CertificateHandler) DownloadImage(c *gin.Context) {
	h.serveArtifact(c, "image", "image/svg+xml")
}

func (h *CertificateHandler) serveArtifact(c *gin.Context, kind, contentType string) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	cert, err := h.certificateService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if !h.canAccess(c, cert) {
		return
	}

	path, err := h.certificateService.ArtifactPath(c.Request.Context(), id, kind)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Header("Content-Type", contentType)
	c.File(path)
}
