package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingWindowType selects which stop anchors the booking-window cutoff.
type BookingWindowType string

const (
	WindowTypeStop      BookingWindowType = "stop"
	WindowTypeFirstStop BookingWindowType = "firstStop"
)

// DefaultBookingInfo is applied when a Trip's BookingInfo fails validation.
var DefaultBookingInfo = BookingInfo{WindowType: WindowTypeStop, WindowSize: 0}

// BookingInfo configures the booking-window check for a Trip.
type BookingInfo struct {
	WindowType BookingWindowType
	WindowSize time.Duration
}

// Valid reports whether this BookingInfo is well-formed enough to use as-is
// rather than falling back to DefaultBookingInfo.
func (b BookingInfo) Valid() bool {
	switch b.WindowType {
	case WindowTypeStop, WindowTypeFirstStop:
		return b.WindowSize >= 0
	default:
		return false
	}
}

// TripStop is one scheduled stop of a Trip.
type TripStop struct {
	ID     string
	TripID string
	Time   time.Time
}

// Route groups trips under a transport company and a set of searchable
// tags (used to match RoutePass redemptions).
type Route struct {
	ID                string
	TransportCompanyID string
	Tags              []string
}

// TransportCompany is the single counterparty a Transaction's transfer and
// routePass items must agree on.
type TransportCompany struct {
	ID               string
	Name             string
	SmsOpCode        string
	ClientMerchantID string
	SandboxMerchantID string
}

// Trip is a scheduled, seat-limited bus run. Read-only
// during a workflow.
type Trip struct {
	ID             string
	RouteID        string
	TransportCompanyID string
	IsRunning      bool
	SeatsAvailable int
	Price          decimal.Decimal
	BookingInfo    BookingInfo
	Stops          []TripStop
}

// EffectiveBookingInfo returns t.BookingInfo if valid, else DefaultBookingInfo.
func (t Trip) EffectiveBookingInfo() BookingInfo {
	if t.BookingInfo.Valid() {
		return t.BookingInfo
	}
	return DefaultBookingInfo
}

// HasStop reports whether stopID names one of this trip's stops.
func (t Trip) HasStop(stopID string) bool {
	for _, s := range t.Stops {
		if s.ID == stopID {
			return true
		}
	}
	return false
}

// StopTime returns the scheduled time of stopID and whether it was found.
func (t Trip) StopTime(stopID string) (time.Time, bool) {
	for _, s := range t.Stops {
		if s.ID == stopID {
			return s.Time, true
		}
	}
	return time.Time{}, false
}

// EarliestStopTime returns the minimum Stops[].Time, used for the
// firstStop booking-window anchor.
func (t Trip) EarliestStopTime() (time.Time, bool) {
	if len(t.Stops) == 0 {
		return time.Time{}, false
	}
	earliest := t.Stops[0].Time
	for _, s := range t.Stops[1:] {
		if s.Time.Before(earliest) {
			earliest = s.Time
		}
	}
	return earliest, true
}
