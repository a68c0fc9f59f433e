package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// Capability names checked by the request router before an operation runs.
const (
	CapTrackTime      = "track_time"
	CapViewTimesheets = "view_timesheets"
	CapManageTeam     = "manage_team"
	CapManagePayroll  = "manage_payroll"
)

// Roles eligible for bulk payroll generation.
var PayrollRoles = []string{"team_member", "team_manager"}
