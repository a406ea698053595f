package shared

// Dashboard permissions carried on session identities.
const (
	PermNotificationsBroadcast = "notifications.broadcast"
	PermEventsDelete           = "events.delete"
	PermLicensesRevoke         = "licenses.revoke"
	PermSettingsEdit           = "settings.edit"
	PermAuditView              = "audit.view"
)

// CoreScopes lists all permissions known to the dashboard.
func CoreScopes() []string {
	return []string{
		PermNotificationsBroadcast,
		PermEventsDelete,
		PermLicensesRevoke,
		PermSettingsEdit,
		PermAuditView,
	}
}
