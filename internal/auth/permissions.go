package auth

import "slices"

const (
	PermManageUsers     = "manage_users"
	PermManageCatalog   = "manage_catalog"
	PermViewReports     = "view_reports"
	PermManageOrders    = "manage_orders"
	PermManageInventory = "manage_inventory"
	PermSystemSettings  = "system_settings"
)

var rolePermissions = map[string][]string{
	"admin": {
		PermManageUsers, PermManageCatalog, PermViewReports,
		PermManageOrders, PermManageInventory, PermSystemSettings,
	},
	"store_staff": {
		PermManageCatalog, PermManageOrders, PermManageInventory, PermViewReports,
	},
}

// Permissions lists what the back office grants role. Unknown roles get none.
func Permissions(role string) []string {
	return slices.Clone(rolePermissions[role])
}
