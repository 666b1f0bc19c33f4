package engine

import (
	"github.com/mesh-intelligence/codadmin/internal/catalog"
	"github.com/mesh-intelligence/codadmin/pkg/types"
)

var (
	staff  = types.Identity{Actor: types.ActorMerchant, RoleName: "owner"}
	client = types.Identity{Actor: types.ActorMerchant, RoleName: "Client"}
)

func schemaOf(key string) types.ResourceSchema {
	return catalog.Default().MustSchema(key)
}

// seedTenant fills the transport with two merchants, three branches, three
// products with category links and images, and role permissions.
func seedTenant(f *fakeTransport) *fakeTransport {
	f.seed(types.ResourceMerchants,
		types.Row{"id": 1, "name": "Acme", "status": "active"},
		types.Row{"id": 2, "name": "", "legal_name": "Beta LLC", "status": "pending"},
	)
	f.seed(types.ResourceBranches,
		types.Row{"id": 3, "merchant_id": 1, "name": "Central", "flag_url": "f3.png"},
		types.Row{"id": 4, "merchant_id": 1, "name": "North"},
		types.Row{"id": 5, "merchant_id": 2, "name": ""},
	)
	f.seed(types.ResourceProducts,
		types.Row{"id": 10, "branch_id": 3, "name": "Widget", "slug": "widget", "status": "active", "is_active": true},
		types.Row{"id": 11, "branch_id": 4, "name": "Gadget", "slug": "gadget", "status": "draft", "is_active": false},
		types.Row{"id": 12, "branch_id": 5, "name": "Gizmo", "slug": "gizmo", "status": "active", "is_active": true},
	)
	f.seed(types.ResourceCategories,
		types.Row{"id": 20, "name": "Tools", "slug": "tools"},
		types.Row{"id": 21, "name": "", "slug": "toys"},
		types.Row{"id": 22, "name": "Unused", "slug": "unused"},
	)
	f.seed(types.ResourceProductCategories,
		types.Row{"id": 100, "product_id": 10, "category_id": 20},
		types.Row{"id": 101, "product_id": 10, "category_id": 21},
		types.Row{"id": 102, "product_id": 11, "category_id": 21},
		types.Row{"id": 103, "product_id": 12, "category_id": 20},
		types.Row{"id": 104, "product_id": nil, "category_id": 22},
	)
	f.seed(types.ResourceProductImages,
		types.Row{"id": 200, "product_id": 10, "url": "a.png", "sort_order": 1},
		types.Row{"id": 201, "product_id": 10, "url": "b.png", "sort_order": 2},
	)
	f.seed(types.ResourcePermissions,
		types.Row{"id": 1, "key_name": "view-product"},
		types.Row{"id": 2, "key_name": "update-product"},
		types.Row{"id": 3, "key_name": "delete-product"},
	)
	f.seed(types.ResourceBranchRoles,
		types.Row{"id": 30, "branch_id": 3, "name": "Manager"},
		types.Row{"id": 31, "branch_id": 5, "name": "Clerk"},
	)
	f.seed(types.ResourceBranchRolePermissions,
		types.Row{"id": 300, "branch_role_id": 30, "permission_id": 1},
		types.Row{"id": 301, "branch_role_id": 30, "permission_id": 2},
		types.Row{"id": 302, "branch_role_id": 31, "permission_id": 9},
	)
	return f
}
