package domain

type AssetStatus string

const (
	AssetStatusAvailable   AssetStatus = "AVAILABLE"
	AssetStatusRented      AssetStatus = "RENTED"
	AssetStatusMaintenance AssetStatus = "MAINTENANCE"
	AssetStatusUnavailable AssetStatus = "UNAVAILABLE"
)

// Asset is owned by the catalog; this engine only reads it and flips Status.
type Asset struct {
	ID               int32       `json:"id"`
	OwnerID          int32       `json:"owner_id"`
	Status           AssetStatus `json:"status"`
	IsActive         bool        `json:"is_active"`
	RatePerUnitCents int32       `json:"rate_per_unit_cents"`
	DepositCents     int32       `json:"deposit_cents"`
}

// Bookable reports whether new reservations may be created against the asset.
func (a *Asset) Bookable() bool {
	return a.IsActive && a.Status == AssetStatusAvailable
}
