package market

// Role scopes sessions and notification queues.
type Role string

const (
	RoleFarmer   Role = "FARMER"
	RoleRetailer Role = "RETAILER"
	RoleService  Role = "SERVICE"
)

var allRoles = []Role{RoleFarmer, RoleRetailer, RoleService}

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleFarmer, RoleRetailer, RoleService:
		return Role(s), true
	}
	return "", false
}
