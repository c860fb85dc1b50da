package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner       = "owner"
	RoleAgencyAdmin = "agency_admin"
	RoleClientUser  = "client_user"
	RoleSuperAdmin  = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }
