package types

// Resource keys of the backend catalog.
const (
	ResourcePlatformAdmins          = "platform-admins"
	ResourcePlatformRoles           = "platform-roles"
	ResourcePlatformPermissions     = "platform-permissions"
	ResourcePlatformRolePermissions = "platform-role-permissions"

	ResourceMerchants             = "merchants"
	ResourceBranches              = "branches"
	ResourceUsers                 = "users"
	ResourcePermissions           = "permissions"
	ResourceBranchRoles           = "branch-roles"
	ResourceBranchRolePermissions = "branch-role-permissions"
	ResourceProducts              = "products"
	ResourceCategories            = "categories"
	ResourceProductCategories     = "product-categories"
	ResourceProductImages         = "product-images"
)

// Column keys with engine-level meaning.
const (
	ColumnID              = "id"
	ColumnStatus          = "status"
	ColumnName            = "name"
	ColumnEmail           = "email"
	ColumnBranchID        = "branch_id"
	ColumnMerchantID      = "merchant_id"
	ColumnFlagURL         = "flag_url"
	ColumnAvatarURL       = "avatar_url"
	ColumnPermissionCount = "permission_count"
)
