package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mohamedammareid/finance/pkg/trading"
	"github.com/shopspring/decimal"
)

// MockQuoteProvider implements the QuoteProvider interface for testing
type MockQuoteProvider struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	calls  map[string]int
	hook   func(symbol string)
	err    error
}

func NewMockQuoteProvider() *MockQuoteProvider {
	return &MockQuoteProvider{
		prices: make(map[string]decimal.Decimal),
		calls:  make(map[string]int),
	}
}

func (m *MockQuoteProvider) SetError(err error) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MockQuoteProvider) SetPrice(symbol, price string) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[trading.NormalizeSymbol(symbol)] = decimal.RequireFromString(price)
	return m
}

// SetHook registers a function that runs at the start of every lookup.
func (m *MockQuoteProvider) SetHook(hook func(symbol string)) *MockQuoteProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
	return m
}

func (m *MockQuoteProvider) Lookup(ctx context.Context, symbol string) (trading.Quote, error) {
	symbol = trading.NormalizeSymbol(symbol)

	m.mu.Lock()
	hook := m.hook
	m.calls[symbol]++
	m.mu.Unlock()

	if hook != nil {
		hook(symbol)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return trading.Quote{}, m.err
	}
	price, ok := m.prices[symbol]
	if !ok {
		return trading.Quote{}, errors.New("unknown symbol " + symbol)
	}
	return trading.Quote{
		Symbol: symbol,
		Name:   symbol + " Inc.",
		Price:  price,
		AsOf:   time.Now().UTC(),
	}, nil
}

func (m *MockQuoteProvider) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[trading.NormalizeSymbol(symbol)]
}

// MockKeyValueClient implements the KeyValueClient interface for testing
type MockKeyValueClient struct {
	mu      sync.Mutex
	storage map[string]any
	ttls    map[string]time.Duration
	closed  bool
	err     error
}

func NewMockKeyValueClient() *MockKeyValueClient {
	return &MockKeyValueClient{
		storage: make(map[string]any),
		ttls:    make(map[string]time.Duration),
	}
}

func (m *MockKeyValueClient) SetError(err error) *MockKeyValueClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MockKeyValueClient) Set(ctx context.Context, key string, value any, exp time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.storage[key] = value
	m.ttls[key] = exp
	return nil
}

func (m *MockKeyValueClient) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", false, m.err
	}
	val, ok := m.storage[key]
	if !ok {
		return "", false, nil
	}
	return fmt.Sprint(val), true, nil
}

func (m *MockKeyValueClient) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	delete(m.storage, key)
	delete(m.ttls, key)
	return nil
}

func (m *MockKeyValueClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockKeyValueClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockKeyValueClient) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

// MockPubsubClient implements the PubsubClient interface for testing
type MockPubsubClient struct {
	mu              sync.Mutex
	publishedTopics map[string][]any
	closed          bool
	err             error
}

func NewMockPubsubClient() *MockPubsubClient {
	return &MockPubsubClient{
		publishedTopics: make(map[string][]any),
	}
}

func (m *MockPubsubClient) SetError(err error) *MockPubsubClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MockPubsubClient) Publish(ctx context.Context, topic string, message any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.publishedTopics[topic] = append(m.publishedTopics[topic], message)
	return nil
}

func (m *MockPubsubClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockPubsubClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockPubsubClient) GetPublished(topic string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.publishedTopics[topic]
}

// KafkaMessage is one message captured by MockKafkaProducer.
type KafkaMessage struct {
	Key   string
	Value []byte
}

// MockKafkaProducer implements the KafkaProducer interface for testing
type MockKafkaProducer struct {
	mu       sync.Mutex
	messages []KafkaMessage
	closed   bool
	err      error
}

func NewMockKafkaProducer() *MockKafkaProducer {
	return &MockKafkaProducer{
		messages: make([]KafkaMessage, 0),
	}
}

func (m *MockKafkaProducer) SetError(err error) *MockKafkaProducer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MockKafkaProducer) SendMessage(ctx context.Context, key string, value []byte) (partition int32, offset int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return 0, 0, m.err
	}

	m.messages = append(m.messages, KafkaMessage{Key: key, Value: value})
	return 0, int64(len(m.messages) - 1), nil
}

func (m *MockKafkaProducer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockKafkaProducer) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockKafkaProducer) GetProducedMessages() []KafkaMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages
}

// MockPublisher implements the Publisher interface for testing
type MockPublisher struct {
	mu     sync.Mutex
	name   string
	events []trading.TradeEvent
	fails  int
	closed bool
	err    error
}

func NewMockPublisher(name string) *MockPublisher {
	return &MockPublisher{name: name}
}

func (m *MockPublisher) SetError(err error) *MockPublisher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// FailTimes makes the next n publishes fail with err before succeeding.
func (m *MockPublisher) FailTimes(n int, err error) *MockPublisher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fails = n
	m.err = err
	return m
}

func (m *MockPublisher) Name() string {
	return m.name
}

func (m *MockPublisher) Publish(ctx context.Context, event trading.TradeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		if m.fails == 0 {
			return m.err
		}
		m.fails--
		if m.fails == 0 {
			err := m.err
			m.err = nil
			return err
		}
		return m.err
	}

	m.events = append(m.events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockPublisher) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockPublisher) Events() []trading.TradeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]trading.TradeEvent, len(m.events))
	copy(out, m.events)
	return out
}
