package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/SURE-Trust/certificate-service/internal/services"
	"github.com/SURE-Trust/certificate-service/internal/utils"
)

const maxAvatarBytes = 2 << 20

var avatarExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

type UserHandler struct {
	BaseHandler
	userService services.UserService
	avatarDir   string
}

func NewUserHandler(userService services.UserService, avatarDir string, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userService: userService,
		avatarDir:   avatarDir,
	}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UploadAvatar stores the uploaded image under the avatar directory and
// records its public path on the profile.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Missing avatar file", err)
		return
	}
	if file.Size > maxAvatarBytes {
		h.RespondWithError(c, http.StatusBadRequest, "Avatar exceeds 2MB limit", nil)
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !avatarExtensions[ext] {
		h.RespondWithError(c, http.StatusBadRequest, "Unsupported image type", nil)
		return
	}

	if err := os.MkdirAll(h.avatarDir, 0o755); err != nil {
		h.handleServiceError(c, err)
		return
	}

	name := uuid.New().String() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(h.avatarDir, name)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	avatarURL := "/uploads/avatars/" + name
	if err := h.userService.UpdateAvatar(c.Request.Context(), userID, avatarURL); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Avatar updated", "user_id", userID)
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Avatar updated",
		Data:    map[string]string{"avatar_url": avatarURL},
	})
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Password changed"})
}

func (h *UserHandler) ListMyCertificates(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	list, err := h.userService.ListCertificates(c.Request.Context(), userID, page, size)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// DeleteAccount anonymizes the account in place. Claimed certificates keep
// their verification record.
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	h.LogRequest(c, "Deleting account", "user_id", userID)

	if err := h.userService.DeleteAccount(c.Request.Context(), userID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Account deleted"})
}
