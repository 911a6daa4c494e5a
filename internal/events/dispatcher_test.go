package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mohamedammareid/finance/internal/logger"
	"github.com/mohamedammareid/finance/internal/mocks"
	"github.com/mohamedammareid/finance/internal/utils"
	"github.com/mohamedammareid/finance/pkg/interfaces"
	"github.com/mohamedammareid/finance/pkg/trading"
)

func testRetry() utils.RetryConfig {
	return utils.RetryConfig{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2.0,
		MaxElapsedTime:  50 * time.Millisecond,
	}
}

func testEvent(id int64, symbol string) trading.TradeEvent {
	return trading.TradeEvent{
		ID:   "evt-" + symbol,
		Side: trading.SideBuy,
		Trade: trading.Trade{
			ID:        id,
			AccountID: 1,
			Symbol:    symbol,
			Quantity:  10,
			Price:     decimal.RequireFromString("150.25"),
		},
		Amount:    decimal.RequireFromString("1502.50"),
		CashAfter: decimal.RequireFromString("8497.50"),
	}
}

func TestDispatcher_Start(t *testing.T) {
	tests := []struct {
		name        string
		failures    int
		wantHealthy int
		wantFlaky   int
	}{
		{name: "all_sinks_succeed", failures: 0, wantHealthy: 2, wantFlaky: 2},
		{name: "transient_failures_are_retried", failures: 2, wantHealthy: 2, wantFlaky: 2},
		{name: "failing_sink_does_not_block_others", failures: -1, wantHealthy: 2, wantFlaky: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			healthy := mocks.NewMockPublisher("healthy")
			flaky := mocks.NewMockPublisher("flaky")
			switch {
			case tc.failures > 0:
				flaky.FailTimes(tc.failures, errors.New("broker unavailable"))
			case tc.failures < 0:
				flaky.SetError(errors.New("broker unavailable"))
			}

			d := NewDispatcher([]interfaces.Publisher{healthy, flaky}, testRetry(), logger.NewNoOpLogger())

			eventChan := make(chan trading.TradeEvent, 2)
			eventChan <- testEvent(1, "AAPL")
			eventChan <- testEvent(2, "MSFT")
			close(eventChan)

			if err := d.Start(context.Background(), eventChan); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := len(healthy.Events()); got != tc.wantHealthy {
				t.Errorf("healthy sink: expected %d events, got %d", tc.wantHealthy, got)
			}
			if got := len(flaky.Events()); got != tc.wantFlaky {
				t.Errorf("flaky sink: expected %d events, got %d", tc.wantFlaky, got)
			}
			if !healthy.IsClosed() || !flaky.IsClosed() {
				t.Error("expected sinks to be closed after the channel closed")
			}
		})
	}
}

func TestDispatcher_ContextCancelled(t *testing.T) {
	sink := mocks.NewMockPublisher("sink")
	d := NewDispatcher([]interfaces.Publisher{sink}, testRetry(), logger.NewNoOpLogger())

	eventChan := make(chan trading.TradeEvent, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Start(ctx, eventChan) }()

	eventChan <- testEvent(1, "AAPL")
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after cancellation")
	}

	if len(sink.Events()) != 1 {
		t.Errorf("expected 1 event, got %d", len(sink.Events()))
	}
	if !sink.IsClosed() {
		t.Error("expected sink to be closed")
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewMockKafkaProducer()
	p := NewKafkaPublisher(producer)

	if err := p.Publish(context.Background(), testEvent(7, "NFLX")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := producer.GetProducedMessages()
	if len(msgs) != 1 || msgs[0].Key != "NFLX" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	var decoded trading.TradeEvent
	if err := json.Unmarshal(msgs[0].Value, &decoded); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if decoded.Trade.ID != 7 || !decoded.Amount.Equal(decimal.RequireFromString("1502.50")) {
		t.Errorf("unexpected event: %+v", decoded)
	}

	producer.SetError(errors.New("leader not available"))
	if err := p.Publish(context.Background(), testEvent(8, "NFLX")); err == nil {
		t.Error("expected producer error to surface")
	}
}

func TestRedisPublisher_Publish(t *testing.T) {
	client := mocks.NewMockPubsubClient()
	p := NewRedisPublisher(client, "trades.settled")

	if err := p.Publish(context.Background(), testEvent(3, "TSLA")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	published := client.GetPublished("trades.settled")
	if len(published) != 1 {
		t.Fatalf("expected 1 message, got %d", len(published))
	}
	body, ok := published[0].(string)
	if !ok {
		t.Fatalf("expected JSON string payload, got %T", published[0])
	}
	var decoded trading.TradeEvent
	if err := json.Unmarshal([]byte(body), &decoded); err != nil || decoded.Trade.Symbol != "TSLA" {
		t.Errorf("unexpected payload %q: %v", body, err)
	}

	if err := p.Close(); err != nil || !client.IsClosed() {
		t.Errorf("expected client to be closed, err=%v", err)
	}
}
