// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// EndpointSecurityConfig maps methods to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Health - Public
	"/grpc.health.v1.Health/Check": SecurityPublic,

	// ReservationService - Access Protected
	"/reservation.v1.ReservationService/CreateReservation":     SecurityAccess,
	"/reservation.v1.ReservationService/GetReservation":        SecurityAccess,
	"/reservation.v1.ReservationService/TransitionReservation": SecurityAccess,
	"/reservation.v1.ReservationService/CheckAvailability":     SecurityAccess,
	"/reservation.v1.ReservationService/ListReservations":      SecurityAccess,
	"/reservation.v1.ReservationService/InitiateCheckout":      SecurityAccess,
}

// GetSecurityLevel returns the security level for a given method
func GetSecurityLevel(method string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
