package rbac

type Role string
type Capability string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleHR       Role = "hr"
	RoleAdmin    Role = "admin"
	RoleCEO      Role = "ceo"
)

const (
	CapViewPendingApprovals Capability = "view-pending-approvals"
	CapDecideApproval       Capability = "decide-approval"
	CapManageCompany        Capability = "manage-company"
)

var authorityCaps = map[Capability]struct{}{
	CapViewPendingApprovals: {},
	CapDecideApproval:       {},
	CapManageCompany:        {},
}

func Can(role Role, cap Capability) bool {
	switch role {
	case RoleManager, RoleHR, RoleAdmin, RoleCEO:
		_, ok := authorityCaps[cap]
		return ok
	default:
		return false
	}
}

// Capabilities returns the full capability set for a role. Employees hold
// no capabilities; they interact through chat and their own request list.
func Capabilities(role Role) []Capability {
	switch role {
	case RoleManager, RoleHR, RoleAdmin, RoleCEO:
		return []Capability{CapViewPendingApprovals, CapDecideApproval, CapManageCompany}
	default:
		return nil
	}
}

// IsAuthority reports whether the role reviews other employees' requests.
func IsAuthority(role Role) bool {
	return Can(role, CapDecideApproval)
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleEmployee, RoleManager, RoleHR, RoleAdmin, RoleCEO:
		return Role(role)
	default:
		return RoleEmployee
	}
}
