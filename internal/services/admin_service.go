package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SURE-Trust/certificate-service/internal/cache"
	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
	"github.com/SURE-Trust/certificate-service/internal/validator"
)

const recentVerificationCount = 10

type adminService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	validator *validator.Validator
	logger    *slog.Logger
	users     UserService
}

func NewAdminService(
	repo repositories.Repository,
	cacheManager *cache.CacheManager,
	v *validator.Validator,
	logger *slog.Logger,
	users UserService,
) AdminService {
	return &adminService{
		repo:      repo,
		cache:     cacheManager,
		validator: v,
		logger:    logger,
		users:     users,
	}
}

func (s *adminService) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	var resp DashboardResponse
	err := s.cache.Stats.CacheOrExecute(ctx, "dashboard", &resp,
		cache.StatsCacheConfig.TTL, func() (interface{}, error) {
			return s.buildDashboard(ctx)
		})
	if err != nil {
		return nil, fmt.Errorf("build dashboard: %w", err)
	}
	return &resp, nil
}

func (s *adminService) buildDashboard(ctx context.Context) (*DashboardResponse, error) {
	userStats, err := s.repo.Users().Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	certStats, err := s.repo.Certificates().Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("certificate stats: %w", err)
	}
	recent, _, err := s.repo.VerificationLogs().List(ctx, repositories.VerificationLogFilters{
		Limit: recentVerificationCount,
	})
	if err != nil {
		return nil, fmt.Errorf("recent verifications: %w", err)
	}

	return &DashboardResponse{
		Users:               userStats,
		Certificates:        certStats,
		RecentVerifications: recent,
	}, nil
}

func (s *adminService) ListUsers(ctx context.Context, req *ListUsersRequest) (*UserListResponse, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	page, size := normalizePage(req.Page, req.Size)
	filters := repositories.UserFilters{
		Query:     strings.TrimSpace(req.Query),
		IsActive:  req.IsActive,
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Role != "" {
		role := models.UserRole(req.Role)
		filters.Role = &role
	}

	users, total, err := s.repo.Users().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &UserListResponse{Users: users, Total: total, Page: page, Size: size}, nil
}

func (s *adminService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.Users().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

func (s *adminService) UpdateUser(ctx context.Context, id uint, req *AdminUpdateUserRequest) (*models.User, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Role != nil {
		fields["role"] = *req.Role
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if len(fields) == 0 {
		return s.GetUser(ctx, id)
	}

	if err := s.repo.Users().UpdateFields(ctx, id, fields); err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	s.logger.Info("user updated by admin", "user_id", id, "fields", fields)
	return s.GetUser(ctx, id)
}

// DeleteUser goes through the same anonymization path the account holder
// would use, so admin deletions honor the same retention rules.
func (s *adminService) DeleteUser(ctx context.Context, id uint) error {
	return s.users.DeleteAccount(ctx, id)
}

func (s *adminService) VerificationLogs(ctx context.Context, req *VerificationLogListRequest) (*VerificationLogListResponse, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	page, size := normalizePage(req.Page, req.Size)
	filters := repositories.VerificationLogFilters{
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
		Limit:    size,
		Offset:   (page - 1) * size,
	}
	if req.RefNo != "" {
		filters.RefNo = &req.RefNo
	}
	if req.Status != "" {
		status := models.VerificationStatus(req.Status)
		filters.Status = &status
	}

	logs, total, err := s.repo.VerificationLogs().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list verification logs: %w", err)
	}
	return &VerificationLogListResponse{Logs: logs, Total: total, Page: page, Size: size}, nil
}
