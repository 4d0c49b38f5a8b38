package models

import (
	"time"

	"github.com/clinicpos/backend/internal/domain/identity"
)

// RolePermissionModel grants one elevated permission to one role.
// Rows are maintained by user administration; the ledger only reads them.
type RolePermissionModel struct {
	RoleCode       identity.RoleCode       `gorm:"type:varchar(50);primaryKey"`
	PermissionCode identity.PermissionCode `gorm:"type:varchar(50);primaryKey"`
	CreatedAt      time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RolePermissionModel) TableName() string {
	return "role_permissions"
}
