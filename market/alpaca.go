package market

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

var (
	_ Provider = (*AlpacaProvider)(nil)
	_ Quoter   = (*AlpacaProvider)(nil)
)

// AlpacaConfig holds the market-data credentials.
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Feed      string // "iex" or "sip"
}

// AlpacaProvider fetches daily bars and latest trades from the Alpaca
// market-data API. Calls block until the API answers; nothing is retried.
type AlpacaProvider struct {
	client *marketdata.Client
	feed   string
	log    *slog.Logger
}

func NewAlpacaProvider(cfg AlpacaConfig) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.BaseURL != "" {
		opts.BaseURL = cfg.BaseURL
	}
	feed := cfg.Feed
	if feed == "" {
		feed = "iex"
	}
	return &AlpacaProvider{
		client: marketdata.NewClient(opts),
		feed:   feed,
		log:    slog.Default().With("provider", "alpaca"),
	}
}

func (p *AlpacaProvider) Bar(ctx context.Context, symbol string, date time.Time) (Bar, error) {
	day := Day(date)
	bars, err := p.Range(ctx, symbol, day, day)
	if err != nil {
		return Bar{}, err
	}
	if len(bars) == 0 {
		return Bar{}, fmt.Errorf("%s %s: %w", symbol, day.Format("2006-01-02"), ErrNotFound)
	}
	return bars[len(bars)-1], nil
}

func (p *AlpacaProvider) Range(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := p.client.GetBars(strings.ToUpper(symbol), marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     Day(from),
		End:       Day(to).Add(24*time.Hour - time.Second),
		Feed:      p.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make([]Bar, 0, len(raw))
	for _, ab := range raw {
		bars = append(bars, Bar{
			Date:   Day(ab.Timestamp),
			Open:   ab.Open,
			High:   ab.High,
			Low:    ab.Low,
			Close:  ab.Close,
			Volume: float64(ab.Volume),
		})
	}
	p.log.Debug("fetched bars", "symbol", symbol, "from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"), "count", len(bars))
	return bars, nil
}

// Quote returns the price of the latest trade.
func (p *AlpacaProvider) Quote(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	trade, err := p.client.GetLatestTrade(strings.ToUpper(symbol), marketdata.GetLatestTradeRequest{Feed: p.feed})
	if err != nil {
		return 0, fmt.Errorf("GetLatestTrade %s: %w", symbol, err)
	}
	if trade == nil {
		return 0, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}
	return trade.Price, nil
}
