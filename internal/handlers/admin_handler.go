package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SURE-Trust/certificate-service/internal/services"
	"github.com/SURE-Trust/certificate-service/internal/utils"
)

type AdminHandler struct {
	BaseHandler
	adminService services.AdminService
}

func NewAdminHandler(adminService services.AdminService, logger utils.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler:  NewBaseHandler(logger),
		adminService: adminService,
	}
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.adminService.Dashboard(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// CertificateStats serves just the certificate slice of the dashboard for
// clients that do not need the rest.
func (h *AdminHandler) CertificateStats(c *gin.Context) {
	dashboard, err := h.adminService.Dashboard(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard.Certificates)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	req := &services.ListUsersRequest{
		Query:     c.Query("q"),
		Role:      c.Query("role"),
		IsActive:  h.parseBoolQueryPtr(c, "is_active"),
		Page:      h.parseIntQuery(c, "page", 1),
		Size:      h.parseIntQuery(c, "size", 20),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	list, err := h.adminService.ListUsers(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, err := h.adminService.GetUser(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Admin updating user", "target_user_id", id)

	user, err := h.adminService.UpdateUser(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Admin deleting user", "target_user_id", id)

	if err := h.adminService.DeleteUser(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "User deleted"})
}

func (h *AdminHandler) VerificationLogs(c *gin.Context) {
	req := &services.VerificationLogListRequest{
		RefNo:    c.Query("ref_no"),
		Status:   c.Query("status"),
		DateFrom: h.parseTimeQuery(c, "date_from"),
		DateTo:   h.parseTimeQuery(c, "date_to"),
		Page:     h.parseIntQuery(c, "page", 1),
		Size:     h.parseIntQuery(c, "size", 20),
	}

	logs, err := h.adminService.VerificationLogs(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *AdminHandler) parseTimeQuery(c *gin.Context, param string) *time.Time {
	value := c.Query(param)
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		if t, err = time.Parse("2006-01-02", value); err != nil {
			return nil
		}
	}
	return &t
}
