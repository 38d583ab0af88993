package enums

// LoyaltyEntryType labels a points history entry.
type LoyaltyEntryType string

const (
	LoyaltyEntryEarn   LoyaltyEntryType = "earn"
	LoyaltyEntryRedeem LoyaltyEntryType = "redeem"
)
