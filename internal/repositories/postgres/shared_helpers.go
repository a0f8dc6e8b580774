package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyCertificateFilters applies common filters to certificate queries
func (h *SharedHelpers) ApplyCertificateFilters(query *gorm.DB, filters repositories.CertificateFilters) *gorm.DB {
	if filters.Type != nil {
		query = query.Where("certificate_type = ?", *filters.Type)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Batch != nil {
		query = query.Where("batch = ?", *filters.Batch)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where("holder_name ILIKE ? OR course ILIKE ? OR ref_no ILIKE ?", like, like, like)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	// Whitelist allowed sort columns
	allowedSortColumns := map[string]bool{
		"created_at":         true,
		"updated_at":         true,
		"id":                 true,
		"issue_date":         true,
		"holder_name":        true,
		"course":             true,
		"ref_no":             true,
		"verification_count": true,
		"email":              true,
	}

	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(sortBy + " " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}

// translateError maps gorm errors to the repository error taxonomy.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repositories.ErrDuplicate
	default:
		return err
	}
}
