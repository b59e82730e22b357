package models

import (
	"errors"
	"fmt"
)

var ErrInvalidStatus = errors.New("invalid status")

type BasketStatus int

const (
	BasketOpen      BasketStatus = 10
	BasketSubmitted BasketStatus = 20
)

func (s BasketStatus) String() string {
	switch s {
	case BasketOpen:
		return "open"
	case BasketSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("BasketStatus(%d)", int(s))
	}
}

type OrderStatus string

// remember to add new statuses to validOrderStatuses
const (
	OrderNew  OrderStatus = "new"
	OrderPaid OrderStatus = "paid"
	OrderDone OrderStatus = "done"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderNew:  {},
	OrderPaid: {},
	OrderDone: {},
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}
	return "", fmt.Errorf("%w: order status %q", ErrInvalidStatus, s)
}

type OrderLineStatus string

// remember to add new statuses to validOrderLineStatuses
const (
	LineNew        OrderLineStatus = "new"
	LineProcessing OrderLineStatus = "processing"
	LineSent       OrderLineStatus = "sent"
	LineCancelled  OrderLineStatus = "cancelled"
)

var validOrderLineStatuses = map[OrderLineStatus]struct{}{
	LineNew:        {},
	LineProcessing: {},
	LineSent:       {},
	LineCancelled:  {},
}

func ToOrderLineStatus(s string) (OrderLineStatus, error) {
	status := OrderLineStatus(s)
	if _, ok := validOrderLineStatuses[status]; ok {
		return status, nil
	}
	return "", fmt.Errorf("%w: order line status %q", ErrInvalidStatus, s)
}

type Country string

const (
	CountryUK Country = "uk"
	CountryUS Country = "us"
)

var supportedCountries = map[Country]string{
	CountryUK: "United Kingdom",
	CountryUS: "United States of America",
}

func ToCountry(s string) (Country, error) {
	c := Country(s)
	if _, ok := supportedCountries[c]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unsupported country %q", s)
}

func (c Country) Name() string { return supportedCountries[c] }
