package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/derval/auth"
	"github.com/kilianp07/derval/config"
	"github.com/kilianp07/derval/connectors"
	wholesalemarket "github.com/kilianp07/derval/connectors/clients/wholesaleMarket"
	connfactory "github.com/kilianp07/derval/connectors/factory"
	"github.com/kilianp07/derval/core/scenario"
	"github.com/kilianp07/derval/core/timeseries"
	"github.com/kilianp07/derval/core/valuestream"
)

// UpdatePrices fetches every price feed over the scenario horizon and hands
// the resampled columns to the streams through UpdatePriceSignals.
func UpdatePrices(ctx context.Context, feeds []config.PriceFeedConfig, sc scenario.Config, streams []valuestream.ValueStream) error {
	if len(feeds) == 0 {
		return nil
	}
	step := timeseries.Duration(sc.DT)
	index := timeseries.HorizonIndex(sc.Years, step)
	if len(index) == 0 {
		return nil
	}
	start, end := index[0], index[len(index)-1].Add(step)

	frame := timeseries.NewFrame(index)
	for _, feed := range feeds {
		client, err := connfactory.NewPriceClient(feed.Connector)
		if err != nil {
			return err
		}
		var opts []connectors.Option
		if feed.URL != "" {
			opts = append(opts, wholesalemarket.WithBaseURL(feed.URL))
		}
		if feed.Auth.Enabled() {
			opts = append(opts, wholesalemarket.WithAuth(auth.NewClientCred(feed.Auth)))
		}
		resp, err := client.Fetch(ctx, start, end, opts...)
		if err != nil {
			return fmt.Errorf("price feed %s: %w", feed.Column, err)
		}
		s, err := resp.Resample(feed.Column, index, feed.Scale)
		if err != nil {
			return fmt.Errorf("price feed %s: %w", feed.Column, err)
		}
		frame.Join(s)
	}
	for _, vs := range streams {
		vs.UpdatePriceSignals(nil, frame)
	}
	return nil
}
