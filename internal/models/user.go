package models

import "time"

// UserRole represents the workshop roles used for permission checks.
type UserRole string

const (
	RoleAdmin          UserRole = "ADMIN"
	RoleInventory      UserRole = "INVENTORY"
	RoleProductionHead UserRole = "PRODUCTION_HEAD"
	RoleQA             UserRole = "QA"
	RoleSales          UserRole = "SALES"
	RoleAccounts       UserRole = "ACCOUNTS"
)

// Permission names the operations the identity service gates.
type Permission string

const (
	PermissionAssignTasks    Permission = "assign_tasks"
	PermissionPickMaterials  Permission = "pick_materials"
	PermissionReviewPackets  Permission = "review_packets"
	PermissionReviewSections Permission = "review_sections"
	PermissionManageSales    Permission = "manage_sales"
	PermissionManagePayments Permission = "manage_payments"
)

// rolePermissions maps each role to the operations it may perform.
var rolePermissions = map[UserRole][]Permission{
	RoleAdmin: {
		PermissionAssignTasks, PermissionPickMaterials, PermissionReviewPackets,
		PermissionReviewSections, PermissionManageSales, PermissionManagePayments,
	},
	RoleInventory:      {PermissionAssignTasks, PermissionPickMaterials, PermissionReviewPackets},
	RoleProductionHead: {PermissionPickMaterials},
	RoleQA:             {PermissionReviewSections},
	RoleSales:          {PermissionManageSales},
	RoleAccounts:       {PermissionManagePayments},
}

// HasPermission reports whether the role holds the given permission.
func (r UserRole) HasPermission(p Permission) bool {
	for _, held := range rolePermissions[r] {
		if held == p {
			return true
		}
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
