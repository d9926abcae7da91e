package domain

import "time"

// RenterEligibility is the identity collaborator's view of a would-be renter.
type RenterEligibility struct {
	UserID        int32      `json:"user_id"`
	Verified      bool       `json:"verified"`
	LicenseNumber string     `json:"license_number"`
	LicenseExpiry *time.Time `json:"license_expiry,omitempty"`
}

// CanRentAt fails closed: an unverified account, a missing license, or a
// license that expires within guard of now are all ineligible.
func (e *RenterEligibility) CanRentAt(now time.Time, guard time.Duration) bool {
	if e == nil || !e.Verified || e.LicenseNumber == "" || e.LicenseExpiry == nil {
		return false
	}
	return e.LicenseExpiry.After(now.Add(guard))
}
