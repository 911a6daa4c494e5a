package alpaca

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"github.com/mohamedammareid/finance/internal/quote"
)

type stubClient struct {
	trade *marketdata.Trade
	err   error
	block chan struct{}
	feed  marketdata.Feed
}

func (s *stubClient) GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error) {
	s.feed = req.Feed
	if s.block != nil {
		<-s.block
	}
	return s.trade, s.err
}

func TestQuoteProvider_Lookup(t *testing.T) {
	ts := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	tests := []struct {
		name    string
		client  *stubClient
		want    string
		wantErr bool
	}{
		{
			name:   "latest_trade",
			client: &stubClient{trade: &marketdata.Trade{Price: 412.5, Timestamp: ts}},
			want:   "412.5",
		},
		{name: "no_trade", client: &stubClient{}, wantErr: true},
		{name: "api_error", client: &stubClient{err: errors.New("forbidden")}, wantErr: true},
		{
			name:    "zero_price",
			client:  &stubClient{trade: &marketdata.Trade{Price: 0, Timestamp: ts}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &QuoteProvider{client: tt.client, feed: marketdata.IEX}
			q, err := p.Lookup(context.Background(), " msft")
			if tt.wantErr {
				if !errors.Is(err, quote.ErrUnavailable) {
					t.Fatalf("expected ErrUnavailable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Symbol != "MSFT" || !q.Price.Equal(decimal.RequireFromString(tt.want)) || !q.AsOf.Equal(ts) {
				t.Errorf("unexpected quote: %+v", q)
			}
			if tt.client.feed != marketdata.IEX {
				t.Errorf("expected feed %q, got %q", marketdata.IEX, tt.client.feed)
			}
		})
	}
}

func TestQuoteProvider_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	p := &QuoteProvider{client: &stubClient{block: block}, feed: marketdata.IEX}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := p.Lookup(ctx, "MSFT"); !errors.Is(err, quote.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
