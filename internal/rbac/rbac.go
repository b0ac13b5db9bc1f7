package rbac

// Role constants
const (
	RoleCreator  = "creator"
	RoleOperator = "operator"
)

// Permission constants
const (
	PermCreateCampaign = "create_campaign"
	PermSetupListener  = "setup_listener"
	PermTriggerSweep   = "trigger_sweep"
	PermViewAudit      = "view_audit"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleCreator: {
		PermCreateCampaign, PermSetupListener,
	},
	RoleOperator: {
		PermCreateCampaign, PermSetupListener, PermTriggerSweep, PermViewAudit,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}
