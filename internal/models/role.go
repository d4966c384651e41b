package models

import "strings"

// Role identifies what an account may do in the giving economy.
type Role string

// Role constants form the closed set of account roles.
const (
	// RoleBeneficiary receives coupons.
	RoleBeneficiary Role = "beneficiary"
	// RoleDonor funds pools and needs.
	RoleDonor Role = "donor"
	// RoleMerchant redeems coupons for cash.
	RoleMerchant Role = "merchant"
	// RoleVolunteer donates without a daily cap.
	RoleVolunteer Role = "volunteer"
	// RoleAdmin operates the system.
	RoleAdmin Role = "admin"
	// RoleBoth is a donor that may also receive coupons.
	RoleBoth Role = "both"
)

// AllRoles lists every valid role.
var AllRoles = []Role{RoleBeneficiary, RoleDonor, RoleMerchant, RoleVolunteer, RoleAdmin, RoleBoth}

// ParseRole normalizes a role name. "seller" is accepted as a legacy alias of merchant.
func ParseRole(raw string) (Role, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "seller" {
		return RoleMerchant, true
	}
	for _, role := range AllRoles {
		if string(role) == name {
			return role, true
		}
	}
	return "", false
}

// CanReceiveCoupon reports whether the role is eligible for coupon assignment.
func (r Role) CanReceiveCoupon() bool {
	return r == RoleBeneficiary || r == RoleBoth
}

// CanRedeem reports whether the role may redeem coupons.
func (r Role) CanRedeem() bool {
	return r == RoleMerchant
}

// CanDonate reports whether the role may fund pools and needs.
func (r Role) CanDonate() bool {
	switch r {
	case RoleDonor, RoleVolunteer, RoleBoth, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the role grants administrative operations.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// RolesWhere returns the roles that satisfy pred, in AllRoles order.
func RolesWhere(pred func(Role) bool) []Role {
	out := make([]Role, 0, len(AllRoles))
	for _, role := range AllRoles {
		if pred(role) {
			out = append(out, role)
		}
	}
	return out
}
