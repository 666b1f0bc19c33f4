package catalog

import "github.com/mesh-intelligence/codadmin/pkg/types"

// crud builds the permission keys view-/create-/update-/delete-<noun>.
func crud(noun string) *types.Permissions {
	return &types.Permissions{
		Read:   "view-" + noun,
		Create: "create-" + noun,
		Update: "update-" + noun,
		Delete: "delete-" + noun,
	}
}

// Audit columns maintained by the server.
var auditFields = []types.Field{
	{Key: "created_by", Label: "Created By", Kind: types.KindNumber, ReadOnly: true},
	{Key: "created_at", Label: "Created At", Kind: types.KindText, ReadOnly: true},
	{Key: "updated_by", Label: "Updated By", Kind: types.KindNumber, ReadOnly: true},
	{Key: "updated_at", Label: "Updated At", Kind: types.KindText, ReadOnly: true},
}

func withAudit(fields ...types.Field) []types.Field {
	return append(fields, auditFields...)
}

var platformRolePermissions = types.RelationSpec{
	Name:          "permissions",
	LinkResource:  types.ResourcePlatformRolePermissions,
	ParentKey:     "platform_role_id",
	ChildKey:      "platform_permission_id",
	ChildResource: types.ResourcePlatformPermissions,
	ChildLabel:    "key_name",
	CountColumn:   types.ColumnPermissionCount,
}

var branchRolePermissions = types.RelationSpec{
	Name:          "permissions",
	LinkResource:  types.ResourceBranchRolePermissions,
	ParentKey:     "branch_role_id",
	ChildKey:      "permission_id",
	ChildResource: types.ResourcePermissions,
	ChildLabel:    "key_name",
	CountColumn:   types.ColumnPermissionCount,
}

var productCategories = types.RelationSpec{
	Name:          "categories",
	LinkResource:  types.ResourceProductCategories,
	ParentKey:     "product_id",
	ChildKey:      "category_id",
	ChildResource: types.ResourceCategories,
	ChildLabel:    "name",
	LinkDefaults:  map[string]any{"is_active": true},
}

var platformSchemas = []types.ResourceSchema{
	{
		Key:         types.ResourcePlatformAdmins,
		Title:       "Platform Admins",
		Noun:        "Admin",
		Section:     types.ActorPlatform,
		Permissions: crud("platform-admin"),
		Fields: []types.Field{
			{Key: "platform_role_id", Label: "Platform Role", Kind: types.KindReference, Ref: types.ResourcePlatformRoles, RefLabel: "name", Required: true},
			{Key: "email", Label: "Email", Kind: types.KindEmail, Required: true},
			{Key: "avatar_url", Label: "Photo URL", Kind: types.KindText},
			{Key: "password", Label: "Password", Kind: types.KindPassword, Required: true},
			{Key: "status", Label: "Status", Kind: types.KindSelect, Options: []string{"active", "inactive", "suspended"}},
		},
		Uploads: []types.UploadSpec{
			{Kind: "photo", PathPrefix: "/platform-admins", FileField: "photo", URLField: types.ColumnAvatarURL},
		},
	},
	{
		Key:         types.ResourcePlatformRoles,
		Title:       "Platform Roles",
		Noun:        "Role",
		Section:     types.ActorPlatform,
		Permissions: crud("platform-role"),
		Fields: []types.Field{
			{Key: "name", Label: "Name", Kind: types.KindText, Required: true},
			{Key: "description", Label: "Description", Kind: types.KindText},
			{Key: "is_system", Label: "System Role", Kind: types.KindBoolean},
		},
		Relations:    []types.RelationSpec{platformRolePermissions},
		RecoveryKeys: [][]string{{"name"}},
	},
	{
		Key:         types.ResourcePlatformPermissions,
		Title:       "Platform Permissions",
		Noun:        "Permission",
		Section:     types.ActorPlatform,
		Permissions: crud("platform-permission"),
		Fields: []types.Field{
			{Key: "key_name", Label: "Key", Kind: types.KindText, Required: true},
			{Key: "description", Label: "Description", Kind: types.KindText},
			{Key: "group_name", Label: "Group", Kind: types.KindText},
		},
	},
	{
		Key:         types.ResourcePlatformRolePermissions,
		Title:       "Platform Role Permissions",
		Noun:        "Role permission",
		Section:     types.ActorPlatform,
		Permissions: crud("platform-role-permission"),
		Fields: []types.Field{
			{Key: "platform_role_id", Label: "Platform Role", Kind: types.KindReference, Ref: types.ResourcePlatformRoles, RefLabel: "name", Required: true},
			{Key: "platform_permission_id", Label: "Permission", Kind: types.KindReference, Ref: types.ResourcePlatformPermissions, RefLabel: "key_name", Required: true},
		},
	},
}

var merchantSchemas = []types.ResourceSchema{
	{
		Key:         types.ResourceMerchants,
		Title:       "Merchants",
		Noun:        "Merchant",
		Section:     types.ActorMerchant,
		Permissions: crud("merchant"),
		Fields: []types.Field{
			{Key: "merchant_code", Label: "Code", Kind: types.KindText, Required: true},
			{Key: "name", Label: "Name", Kind: types.KindText, Required: true},
			{Key: "legal_name", Label: "Legal Name", Kind: types.KindText},
			{Key: "email", Label: "Email", Kind: types.KindEmail},
			{Key: "phone", Label: "Phone", Kind: types.KindText},
			{Key: "country", Label: "Country", Kind: types.KindText},
			{Key: "city", Label: "City", Kind: types.KindText},
			{Key: "address", Label: "Address", Kind: types.KindText},
			{Key: "status", Label: "Status", Kind: types.KindSelect, Options: []string{"pending", "active", "suspended", "closed"}},
		},
	},
	{
		Key:         types.ResourceBranches,
		Title:       "Branches",
		Noun:        "Branch",
		Section:     types.ActorMerchant,
		Permissions: crud("branch"),
		Fields: []types.Field{
			{Key: "merchant_id", Label: "Merchant", Kind: types.KindReference, Ref: types.ResourceMerchants, RefLabel: "name", Required: true},
			{Key: "parent_branch_id", Label: "Parent Branch", Kind: types.KindReference, Ref: types.ResourceBranches, RefLabel: "name"},
			{Key: "name", Label: "Name", Kind: types.KindText, Required: true},
			{Key: "code", Label: "Code", Kind: types.KindText, Required: true},
			{Key: "type", Label: "Type", Kind: types.KindSelect, Options: []string{"hq", "office", "warehouse", "factory", "store", "department"}},
			{Key: "is_main", Label: "Main", Kind: types.KindBoolean},
			{Key: "flag_url", Label: "Flag", Kind: types.KindText},
			{Key: "status", Label: "Status", Kind: types.KindSelect, Options: []string{"active", "inactive"}},
		},
		Uploads: []types.UploadSpec{
			{Kind: "flag", PathPrefix: "/merchant/branches", FileField: "photo", URLField: types.ColumnFlagURL},
		},
	},
	{
		Key:         types.ResourceUsers,
		Title:       "Users",
		Noun:        "User",
		Section:     types.ActorMerchant,
		Permissions: crud("user"),
		Fields: []types.Field{
			{Key: "merchant_id", Label: "Merchant", Kind: types.KindReference, Ref: types.ResourceMerchants, RefLabel: "name", Required: true},
			{Key: "branch_id", Label: "Branch", Kind: types.KindReference, Ref: types.ResourceBranches, RefLabel: "name", Required: true},
			{Key: "merchant_role_id", Label: "Merchant Role", Kind: types.KindReference, Ref: types.ResourceBranchRoles, RefLabel: "name"},
			{Key: "email", Label: "Email", Kind: types.KindEmail, Required: true},
			{Key: "avatar_url", Label: "Photo URL", Kind: types.KindText},
			{Key: "phone", Label: "Phone", Kind: types.KindText},
			{Key: "password", Label: "Password", Kind: types.KindPassword, Required: true},
			{Key: "status", Label: "Status", Kind: types.KindSelect, Options: []string{"active", "inactive", "blocked"}},
		},
		Uploads: []types.UploadSpec{
			{Kind: "photo", PathPrefix: "/merchant/users", FileField: "photo", URLField: types.ColumnAvatarURL},
		},
	},
	{
		Key:         types.ResourcePermissions,
		Title:       "Permissions",
		Noun:        "Permission",
		Section:     types.ActorMerchant,
		Permissions: crud("permission"),
		Fields: []types.Field{
			{Key: "key_name", Label: "Key", Kind: types.KindText, Required: true},
			{Key: "description", Label: "Description", Kind: types.KindText},
			{Key: "group_name", Label: "Group", Kind: types.KindText},
		},
	},
	{
		Key:         types.ResourceBranchRoles,
		Title:       "Branch Roles",
		Noun:        "Role",
		Section:     types.ActorMerchant,
		Permissions: crud("branch-role"),
		Fields: []types.Field{
			{Key: "branch_id", Label: "Branch", Kind: types.KindReference, Ref: types.ResourceBranches, RefLabel: "name", Required: true},
			{Key: "name", Label: "Name", Kind: types.KindText, Required: true},
			{Key: "description", Label: "Description", Kind: types.KindText},
			{Key: "is_system", Label: "System Role", Kind: types.KindBoolean},
		},
		Relations:    []types.RelationSpec{branchRolePermissions},
		RecoveryKeys: [][]string{{"name"}},
	},
	{
		Key:         types.ResourceBranchRolePermissions,
		Title:       "Branch Role Permissions",
		Noun:        "Role permission",
		Section:     types.ActorMerchant,
		Permissions: crud("branch-role-permission"),
		Fields: []types.Field{
			{Key: "branch_role_id", Label: "Branch Role", Kind: types.KindReference, Ref: types.ResourceBranchRoles, RefLabel: "name", Required: true},
			{Key: "permission_id", Label: "Permission", Kind: types.KindReference, Ref: types.ResourcePermissions, RefLabel: "key_name", Required: true},
		},
	},
	{
		Key:         types.ResourceProducts,
		Title:       "Products",
		Noun:        "Product",
		Section:     types.ActorMerchant,
		Permissions: crud("product"),
		Fields: withAudit(
			types.Field{Key: "branch_id", Label: "Branch", Kind: types.KindReference, Ref: types.ResourceBranches, RefLabel: "name", Required: true},
			types.Field{Key: "name", Label: "Name", Kind: types.KindText, Required: true},
			types.Field{Key: "slug", Label: "Slug", Kind: types.KindText, Required: true},
			types.Field{Key: "description", Label: "Description", Kind: types.KindText},
			types.Field{Key: "moq", Label: "MOQ", Kind: types.KindNumber},
			types.Field{Key: "status", Label: "Status", Kind: types.KindSelect, Options: []string{"draft", "active", "hidden", "out_of_stock", "archived"}},
			types.Field{Key: "is_active", Label: "Active", Kind: types.KindBoolean},
		),
		Relations: []types.RelationSpec{productCategories},
		Images: &types.ImageSpec{
			Resource:   types.ResourceProductImages,
			ParentKey:  "product_id",
			UploadPath: "/product-images/upload",
			FileField:  "photo",
		},
		Scope:        types.ScopeRule{Kind: types.ScopeByOwningBranch, Link: &productCategories},
		RecoveryKeys: [][]string{{"slug", "name"}, {"slug"}},
	},
	{
		Key:         types.ResourceCategories,
		Title:       "Categories",
		Noun:        "Category",
		Section:     types.ActorMerchant,
		Permissions: crud("category"),
		Fields: withAudit(
			types.Field{Key: "name", Label: "Name", Kind: types.KindText, Required: true},
			types.Field{Key: "slug", Label: "Slug", Kind: types.KindText, Required: true},
			types.Field{Key: "is_active", Label: "Active", Kind: types.KindBoolean},
		),
		Scope: types.ScopeRule{Kind: types.ScopeByLinkedOwners, Owner: types.ResourceProducts, Link: &productCategories},
	},
}

var defaultRegistry = mustRegistry(append(append([]types.ResourceSchema(nil), platformSchemas...), merchantSchemas...)...)

func mustRegistry(schemas ...types.ResourceSchema) *Registry {
	r, err := NewRegistry(schemas...)
	if err != nil {
		panic("catalog: " + err.Error())
	}
	return r
}

// Default returns the console's built-in resource catalog.
func Default() *Registry {
	return defaultRegistry
}
