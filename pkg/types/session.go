package types

import (
	"errors"
	"strings"
)

// RoleClient is the merchant role name of read-only, tenant-restricted users.
const RoleClient = "client"

// Identity is the authenticated principal the console runs as. It is
// established once by the session collaborator; the core only reads it.
type Identity struct {
	Actor       Actor
	RoleName    string
	Permissions []string
	Profile     Row
}

// HasPermission reports whether key is in the permission set.
func (i Identity) HasPermission(key string) bool {
	for _, p := range i.Permissions {
		if p == key {
			return true
		}
	}
	return false
}

// MerchantSide reports whether the actor signs in through the merchant side
// of the console (merchant staff and buyers).
func (i Identity) MerchantSide() bool {
	return i.Actor == ActorMerchant || i.Actor == ActorBuyer
}

// IsClient reports whether the identity is a read-only, scope-restricted
// client user.
func (i Identity) IsClient() bool {
	if i.Actor == ActorBuyer {
		return true
	}
	return i.Actor == ActorMerchant && strings.EqualFold(i.RoleName, RoleClient)
}

// Session errors.
var (
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrUnknownActor = errors.New("unknown actor")
	ErrWrongActor   = errors.New("account does not belong to this actor")
)
