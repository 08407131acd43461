package effectchain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var errNullOrder = errors.New("effectchain: invalid order json: null")

// OrderKey is the preference key the chain order is stored under.
const OrderKey = "fxChainOrder"

// MarshalOrder encodes an order as a JSON array of ids.
func MarshalOrder(order []string) ([]byte, error) {
	if order == nil {
		order = []string{}
	}

	data, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("effectchain: encode order: %w", err)
	}

	return data, nil
}

// ParseOrder decodes a persisted JSON array of ids. Unknown ids are kept;
// NewChain drops them against its catalog.
func ParseOrder(data []byte) ([]string, error) {
	var order []string

	err := json.Unmarshal(data, &order)
	if err != nil {
		return nil, fmt.Errorf("effectchain: invalid order json: %w", err)
	}

	if order == nil {
		return nil, errNullOrder
	}

	return order, nil
}
