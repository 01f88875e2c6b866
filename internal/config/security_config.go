// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic      SecurityLevel = iota // No authentication
	SecurityParticipant                      // Identity token of the participant in the path required
	SecuritySelfOrOwner                      // Identity token of the participant in the path, or owner credential
	SecurityOwner                            // Owner credential of the addressed meeting required
)

// Route names used by the HTTP API; the router tags each route with one.
const (
	RouteCheckOwnership  = "check_ownership"
	RouteRegisterPending = "register_pending"
	RouteApprovalStatus  = "approval_status"
	RouteDenyParticipant = "deny_participant"
	RoutePromote         = "promote_participant"
	RouteListPending     = "list_pending"
	RouteHealth          = "health"
)

// EndpointSecurityConfig maps routes to their required security level.
// Deny is either a participant withdrawing its own request or the owner's
// decision.
var EndpointSecurityConfig = map[string]SecurityLevel{
	RouteHealth: SecurityPublic,

	RouteCheckOwnership:  SecurityParticipant,
	RouteRegisterPending: SecurityParticipant,
	RouteApprovalStatus:  SecurityParticipant,

	RouteDenyParticipant: SecuritySelfOrOwner,

	RoutePromote:     SecurityOwner,
	RouteListPending: SecurityOwner,
}

// GetSecurityLevel returns the security level for a route.
// Unknown routes default to SecurityOwner.
func GetSecurityLevel(route string) SecurityLevel {
	if level, ok := EndpointSecurityConfig[route]; ok {
		return level
	}
	return SecurityOwner
}
