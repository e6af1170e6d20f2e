// Package fx looks up exchange rates for display conversion. Rates are cached
// with a TTL and a stale table is served when a refresh fails. Nothing in the
// ledger write path consults it.
package fx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/govalues/money"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnavailable is returned when no rates were ever fetched.
	ErrUnavailable = errors.New("exchange rates unavailable")
	// ErrUnknownCurrency is returned when a currency has no rate.
	ErrUnknownCurrency = errors.New("unknown currency")
)

// Table holds rates relative to Base (Base itself is 1).
type Table struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"fetched_at"`
	// Stale is set when the table is older than the TTL because a refresh failed.
	Stale bool `json:"stale"`
}

// Options configures Rates.
type Options struct {
	URL    string
	Base   string
	TTL    time.Duration
	Client *http.Client
}

// Rates is a cached rate source. It is safe for concurrent use.
type Rates struct {
	opts Options
	log  *slog.Logger
	now  func() time.Time

	mu     sync.Mutex
	cached *Table
}

func New(opts Options, logger *slog.Logger) *Rates {
	if opts.Base == "" { opts.Base = "IDR" }
	opts.Base = strings.ToUpper(opts.Base)
	if opts.TTL <= 0 { opts.TTL = time.Hour }
	if opts.Client == nil { opts.Client = &http.Client{Timeout: 10 * time.Second} }
	if logger == nil { logger = slog.Default() }
	return &Rates{opts: opts, log: logger, now: time.Now}
}

// Get returns a fresh table, refreshing it when the cache is older than the TTL.
func (r *Rates) Get(ctx context.Context) (Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil && r.now().Sub(r.cached.FetchedAt) < r.opts.TTL {
		return *r.cached, nil
	}
	t, err := r.fetch(ctx)
	if err != nil {
		if r.cached != nil {
			r.log.Warn("exchange rate refresh failed, serving stale rates", "err", err, "fetched_at", r.cached.FetchedAt)
			stale := *r.cached
			stale.Stale = true
			return stale, nil
		}
		return Table{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	r.cached = &t
	return t, nil
}

// Refresh forces a fetch regardless of the TTL.
func (r *Rates) Refresh(ctx context.Context) error {
	t, err := r.fetch(ctx)
	if err != nil { return err }
	r.mu.Lock()
	r.cached = &t
	r.mu.Unlock()
	return nil
}

type apiResponse struct {
	Result   string                     `json:"result"`
	BaseCode string                     `json:"base_code"`
	Rates    map[string]decimal.Decimal `json:"rates"`
}

func (r *Rates) fetch(ctx context.Context) (Table, error) {
	url := strings.TrimRight(r.opts.URL, "/") + "/" + r.opts.Base
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil { return Table{}, err }
	resp, err := r.opts.Client.Do(req)
	if err != nil { return Table{}, err }
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Table{}, fmt.Errorf("rate api returned %d", resp.StatusCode)
	}
	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Table{}, fmt.Errorf("decode rates: %w", err)
	}
	if body.Result != "" && body.Result != "success" {
		return Table{}, fmt.Errorf("rate api result %q", body.Result)
	}
	if len(body.Rates) == 0 {
		return Table{}, errors.New("rate api returned no rates")
	}
	rates := make(map[string]decimal.Decimal, len(body.Rates)+1)
	for code, v := range body.Rates {
		if v.IsPositive() { rates[strings.ToUpper(code)] = v }
	}
	rates[r.opts.Base] = decimal.NewFromInt(1)
	return Table{Base: r.opts.Base, Rates: rates, FetchedAt: r.now().UTC()}, nil
}

// Convert converts minor units of from into minor units of to, rounding half
// to even at the target currency's scale.
func (t Table) Convert(minor int64, from, to string) (int64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to { return minor, nil }
	fromRate, ok := t.Rates[from]
	if !ok { return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, from) }
	toRate, ok := t.Rates[to]
	if !ok { return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, to) }
	fromScale, err := scale(from)
	if err != nil { return 0, err }
	toScale, err := scale(to)
	if err != nil { return 0, err }
	amount := decimal.New(minor, -fromScale)
	converted := amount.Div(fromRate).Mul(toRate)
	return converted.Shift(toScale).RoundBank(0).IntPart(), nil
}

func scale(code string) (int32, error) {
	c, err := money.ParseCurr(code)
	if err != nil { return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, code) }
	return int32(c.Scale()), nil
}

// Schedule starts a cron job that keeps the cache warm.
func (r *Rates) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.Refresh(ctx); err != nil {
			r.log.Warn("scheduled exchange rate refresh failed", "err", err)
			return
		}
		r.log.Debug("exchange rates refreshed")
	})
	if err != nil { return nil, fmt.Errorf("schedule fx refresh: %w", err) }
	c.Start()
	return c, nil
}
