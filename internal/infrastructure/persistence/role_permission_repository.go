package persistence

import (
	"context"
	"time"

	"github.com/clinicpos/backend/internal/domain/identity"
	"github.com/clinicpos/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRolePermissionRepository stores role to permission grants and serves
// them to the permission gate
type GormRolePermissionRepository struct {
	db *gorm.DB
}

// NewGormRolePermissionRepository creates a new GormRolePermissionRepository
func NewGormRolePermissionRepository(db *gorm.DB) *GormRolePermissionRepository {
	return &GormRolePermissionRepository{db: db}
}

// HasGrant implements identity.GrantSource
func (r *GormRolePermissionRepository) HasGrant(ctx context.Context, role identity.RoleCode, code identity.PermissionCode) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.RolePermissionModel{}).
		Where("role_code = ? AND permission_code = ?", role, code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Grant gives role the permission. Granting twice is a no-op.
func (r *GormRolePermissionRepository) Grant(ctx context.Context, role identity.RoleCode, code identity.PermissionCode) error {
	code, err := identity.ParsePermissionCode(string(code))
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RolePermissionModel{
			RoleCode:       role,
			PermissionCode: code,
			CreatedAt:      time.Now().UTC(),
		}).Error
}

// Revoke removes the permission from role
func (r *GormRolePermissionRepository) Revoke(ctx context.Context, role identity.RoleCode, code identity.PermissionCode) error {
	return r.db.WithContext(ctx).
		Where("role_code = ? AND permission_code = ?", role, code).
		Delete(&models.RolePermissionModel{}).Error
}

// ListForRole returns the permissions granted to role
func (r *GormRolePermissionRepository) ListForRole(ctx context.Context, role identity.RoleCode) ([]identity.PermissionCode, error) {
	var codes []identity.PermissionCode
	if err := r.db.WithContext(ctx).
		Model(&models.RolePermissionModel{}).
		Where("role_code = ?", role).
		Order("permission_code ASC").
		Pluck("permission_code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

var _ identity.GrantSource = (*GormRolePermissionRepository)(nil)
