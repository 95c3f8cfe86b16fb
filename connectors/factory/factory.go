// Package factory resolves the price connector named in a price feed.
package factory

import (
	"fmt"
	"sort"

	"github.com/kilianp07/derval/connectors"
	wholesalemarket "github.com/kilianp07/derval/connectors/clients/wholesaleMarket"
)

// IDWholesaleMarket is the connector of the wholesale market price API.
const IDWholesaleMarket = "wholesale_market"

var clients = map[string]func() connectors.PriceClient{
	IDWholesaleMarket: func() connectors.PriceClient { return wholesalemarket.NewClient() },
}

// NewPriceClient returns a fresh client for the connector id.
func NewPriceClient(id string) (connectors.PriceClient, error) {
	newClient, ok := clients[id]
	if !ok {
		known := make([]string, 0, len(clients))
		for k := range clients {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("unknown price connector %q (known: %v)", id, known)
	}
	return newClient(), nil
}
