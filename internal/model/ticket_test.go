package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvailabilityFor(t *testing.T) {
	cases := []struct {
		name      string
		available int64
		total     int64
		want      AvailabilityStatus
	}{
		{"plenty left", 90, 100, AvailabilityAvailable},
		{"just above selling fast", 41, 100, AvailabilityAvailable},
		{"selling fast boundary", 40, 100, AvailabilitySellingFast},
		{"between thresholds", 20, 100, AvailabilitySellingFast},
		{"limited boundary", 10, 100, AvailabilityLimited},
		{"almost gone", 1, 100, AvailabilityLimited},
		{"sold out", 0, 100, AvailabilitySoldOut},
		{"oversold", -2, 100, AvailabilitySoldOut},
		{"zero capacity", 0, 0, AvailabilitySoldOut},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AvailabilityFor(tc.available, tc.total))
		})
	}
}

func TestMaxPurchaseQuantity(t *testing.T) {
	assert.Equal(t, int64(0), MaxPurchaseQuantity(-1))
	assert.Equal(t, int64(0), MaxPurchaseQuantity(0))
	assert.Equal(t, int64(3), MaxPurchaseQuantity(3))
	assert.Equal(t, int64(10), MaxPurchaseQuantity(10))
	assert.Equal(t, int64(10), MaxPurchaseQuantity(500))
}
