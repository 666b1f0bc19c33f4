package engine

import "github.com/mesh-intelligence/codadmin/pkg/types"

// Access is what an identity may do with one resource.
type Access struct {
	Read   bool
	Create bool
	Update bool
	Delete bool
}

// AccessFor derives the access of identity to schema. Merchant-side actors
// read everything; platform actors need the declared read permission. Writes
// need the matching permission unless the actor is merchant-side or the
// permission is undeclared. Client users never write.
func AccessFor(schema types.ResourceSchema, identity types.Identity) Access {
	perms := schema.Permissions
	if perms == nil {
		perms = &types.Permissions{}
	}
	allowed := func(key string) bool {
		return key == "" || identity.MerchantSide() || identity.HasPermission(key)
	}
	a := Access{
		Read:   allowed(perms.Read),
		Create: allowed(perms.Create),
		Update: allowed(perms.Update),
		Delete: allowed(perms.Delete),
	}
	if identity.IsClient() {
		a.Create, a.Update, a.Delete = false, false, false
	}
	return a
}
