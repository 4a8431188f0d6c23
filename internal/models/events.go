package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Event type tags carried in the "type" field of every stream message.
const (
	TypeOrderCreated        = "order.created"
	TypeOrderConfirmed      = "order.confirmed"
	TypePaymentConfirmed    = "payment.confirmed"
	TypeInventoryReserved   = "inventory.reserved"
	TypeInventoryOutOfStock = "inventory.out_of_stock"
)

// ErrMalformedEvent marks a stream message that cannot be decoded into its
// topic's schema. Consumers route these to the dead-letter stream.
var ErrMalformedEvent = errors.New("malformed event")

// OrderEvent is the shared shape of order.created, order.confirmed,
// payment.confirmed and inventory.reserved messages. Fields a topic does not
// carry are left zero.
type OrderEvent struct {
	Type    string
	OrderID string
	UserID  string
	Items   []OrderItem
	Amount  float64
	TS      int64
}

// Values flattens the event into the key/value fields of a stream entry.
// Items travel as a single JSON-encoded field.
func (e OrderEvent) Values() map[string]interface{} {
	items, _ := json.Marshal(e.Items)
	return map[string]interface{}{
		"type":    e.Type,
		"orderId": e.OrderID,
		"userId":  e.UserID,
		"items":   string(items),
		"amount":  strconv.FormatFloat(e.Amount, 'f', -1, 64),
		"ts":      strconv.FormatInt(e.TS, 10),
	}
}

// ParseOrderEvent decodes the flat field map of a delivered message. Any
// missing identity field, undecodable items payload or non-positive quantity
// is reported as ErrMalformedEvent.
func ParseOrderEvent(values map[string]string) (OrderEvent, error) {
	evt := OrderEvent{
		Type:    values["type"],
		OrderID: values["orderId"],
		UserID:  values["userId"],
	}
	if evt.OrderID == "" {
		return evt, fmt.Errorf("%w: missing orderId", ErrMalformedEvent)
	}
	if raw := values["items"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &evt.Items); err != nil {
			return evt, fmt.Errorf("%w: bad items payload: %v", ErrMalformedEvent, err)
		}
		for _, it := range evt.Items {
			if it.Qty <= 0 {
				return evt, fmt.Errorf("%w: non-positive qty for product %d", ErrMalformedEvent, it.ProductID)
			}
		}
	}
	if raw := values["amount"]; raw != "" {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return evt, fmt.Errorf("%w: bad amount %q", ErrMalformedEvent, raw)
		}
		evt.Amount = amount
	}
	if raw := values["ts"]; raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return evt, fmt.Errorf("%w: bad ts %q", ErrMalformedEvent, raw)
		}
		evt.TS = ts
	}
	return evt, nil
}

// OutOfStockEvent is published on the inventory.out_of_stock topic when the
// pre-payment check finds an unfulfillable order.
type OutOfStockEvent struct {
	Type    string
	OrderID string
	Reason  string
	TS      int64
}

func (e OutOfStockEvent) Values() map[string]interface{} {
	return map[string]interface{}{
		"type":    e.Type,
		"orderId": e.OrderID,
		"reason":  e.Reason,
		"ts":      strconv.FormatInt(e.TS, 10),
	}
}
