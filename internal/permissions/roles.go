package permissions

import "strings"

// Role identifies an account's position in the barangay hierarchy.
type Role string

const (
	RoleSuperadmin        Role = "superadmin"
	RoleBarangayCaptain   Role = "barangay_captain"
	RoleSecretary         Role = "secretary"
	RoleTreasurer         Role = "treasurer"
	RoleStaff             Role = "staff"
	RolePeaceOrderOfficer Role = "peace_order_officer"
	RoleHealthOfficer     Role = "health_officer"
	RoleSocialWorker      Role = "social_worker"
)

// OperationalRoles are the tenant roles a barangay captain may provision.
var OperationalRoles = []Role{
	RoleSecretary,
	RoleTreasurer,
	RoleStaff,
	RolePeaceOrderOfficer,
	RoleHealthOfficer,
	RoleSocialWorker,
}

// AllRoles lists every known role, superadmin first.
var AllRoles = append([]Role{RoleSuperadmin, RoleBarangayCaptain}, OperationalRoles...)

// ParseRole normalises value and reports whether it names a known role.
func ParseRole(value string) (Role, bool) {
	candidate := Role(strings.ToLower(strings.TrimSpace(value)))
	for _, role := range AllRoles {
		if role == candidate {
			return role, true
		}
	}
	return "", false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) String() string { return string(r) }

// Label returns the human readable role name.
func (r Role) Label() string {
	switch r {
	case RoleSuperadmin:
		return "Superadmin"
	case RoleBarangayCaptain:
		return "Barangay Captain"
	case RoleSecretary:
		return "Secretary"
	case RoleTreasurer:
		return "Treasurer"
	case RoleStaff:
		return "Staff"
	case RolePeaceOrderOfficer:
		return "Peace and Order Officer"
	case RoleHealthOfficer:
		return "Health Officer"
	case RoleSocialWorker:
		return "Social Worker"
	default:
		return string(r)
	}
}
