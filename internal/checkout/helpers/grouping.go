package helpers

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fulfillment-backend/internal/cart"
	"github.com/angelmondragon/fulfillment-backend/internal/distance"
	"github.com/angelmondragon/fulfillment-backend/internal/routing"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
)

// VendorTotals is one vendor's share of the cart.
type VendorTotals struct {
	VendorID  uuid.UUID       `json:"vendor_id"`
	StoreName string          `json:"store_name"`
	Location  *distance.Point `json:"location"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"item_count"`
}

// ComputeTotalsByVendor sums lines per vendor, in the order vendors first
// appear in the cart.
func ComputeTotalsByVendor(lines []cart.Line) []VendorTotals {
	index := make(map[uuid.UUID]int, len(lines))
	out := make([]VendorTotals, 0, len(lines))
	for _, line := range lines {
		i, ok := index[line.Vendor.ID]
		if !ok {
			i = len(out)
			index[line.Vendor.ID] = i
			out = append(out, VendorTotals{
				VendorID:  line.Vendor.ID,
				StoreName: line.Vendor.StoreName,
				Location:  VendorPoint(line.Vendor),
				Subtotal:  decimal.Zero,
			})
		}
		out[i].Subtotal = out[i].Subtotal.Add(line.LineTotal)
		out[i].ItemCount += line.Quantity
	}
	return out
}

// VendorPoint returns the vendor's pickup point, nil when not geocoded.
func VendorPoint(v models.Vendor) *distance.Point {
	if !v.HasLocation() {
		return nil
	}
	return &distance.Point{Lat: *v.Latitude, Lng: *v.Longitude}
}

// VendorStops turns vendors into route stops, preserving order.
func VendorStops(vendors []models.Vendor) []routing.Stop {
	stops := make([]routing.Stop, 0, len(vendors))
	for _, v := range vendors {
		stops = append(stops, routing.Stop{
			ID:       v.ID.String(),
			Label:    v.StoreName,
			Location: VendorPoint(v),
		})
	}
	return stops
}

// FirstVendorPoint is the location of the first vendor that has one.
func FirstVendorPoint(vendors []models.Vendor) *distance.Point {
	for _, v := range vendors {
		if p := VendorPoint(v); p != nil {
			return p
		}
	}
	return nil
}
