package quote

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/mohamedammareid/finance/pkg/trading"
)

type iexQuote struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"companyName"`
	LatestPrice decimal.Decimal `json:"latestPrice"`
	LatestTime  int64           `json:"latestUpdate"`
}

// IEXProvider queries the IEX Cloud quote endpoint.
type IEXProvider struct {
	client *resty.Client
	token  string
	now    func() time.Time
}

func NewIEXProvider(baseURL, token string, timeout time.Duration) *IEXProvider {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &IEXProvider{client: client, token: token, now: time.Now}
}

func (p *IEXProvider) Lookup(ctx context.Context, symbol string) (trading.Quote, error) {
	symbol = trading.NormalizeSymbol(symbol)
	if symbol == "" {
		return trading.Quote{}, unavailable(symbol, "empty symbol")
	}

	var payload iexQuote
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParam("token", p.token).
		SetResult(&payload).
		Get("/stock/{symbol}/quote")
	if err != nil {
		return trading.Quote{}, unavailable(symbol, "%v", err)
	}
	if resp.IsError() {
		return trading.Quote{}, unavailable(symbol, "status %d", resp.StatusCode())
	}

	asOf := p.now().UTC()
	if payload.LatestTime > 0 {
		asOf = time.UnixMilli(payload.LatestTime).UTC()
	}

	q := trading.Quote{
		Symbol: trading.NormalizeSymbol(payload.Symbol),
		Name:   payload.CompanyName,
		Price:  payload.LatestPrice,
		AsOf:   asOf,
	}
	if err := Validate(q); err != nil {
		return trading.Quote{}, err
	}
	return q, nil
}
