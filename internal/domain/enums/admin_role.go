package enums

type AdminRole string

const (
	AdminRoleOwner  AdminRole = "OWNER"
	AdminRoleEditor AdminRole = "EDITOR"
)

func ParseAdminRole(raw string) (AdminRole, bool) {
	switch AdminRole(raw) {
	case AdminRoleOwner, AdminRoleEditor:
		return AdminRole(raw), true
	default:
		return "", false
	}
}
