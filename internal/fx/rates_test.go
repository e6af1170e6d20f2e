package fx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRates_CacheAndStaleOnError(t *testing.T) {
	var calls int32
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/latest/IDR" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"success","base_code":"IDR","rates":{"IDR":1,"USD":0.0000625,"JPY":0.0095}}`))
	}))
	defer srv.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := New(Options{URL: srv.URL + "/latest/", Base: "idr", TTL: time.Hour}, testLogger())
	r.now = func() time.Time { return now }

	ctx := context.Background()
	t1, err := r.Get(ctx)
	if err != nil { t.Fatalf("get: %v", err) }
	if _, err := r.Get(ctx); err != nil { t.Fatal(err) }
	if calls != 1 { t.Fatalf("expected cached second call, got %d fetches", calls) }
	if !t1.Rates["USD"].Equal(decimal.RequireFromString("0.0000625")) { t.Fatalf("usd rate %s", t1.Rates["USD"]) }

	now = now.Add(2 * time.Hour)
	fail.Store(true)
	t2, err := r.Get(ctx)
	if err != nil { t.Fatalf("stale fallback: %v", err) }
	if !t2.Stale || calls != 2 { t.Fatalf("expected stale table after failed refresh, stale=%v calls=%d", t2.Stale, calls) }
}

func TestRates_UnavailableWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }))
	defer srv.Close()
	r := New(Options{URL: srv.URL}, testLogger())
	if _, err := r.Get(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestTable_Convert(t *testing.T) {
	tbl := Table{Base: "IDR", Rates: map[string]decimal.Decimal{
		"IDR": decimal.NewFromInt(1),
		"USD": decimal.RequireFromString("0.0000625"),
		"JPY": decimal.RequireFromString("0.0095"),
	}}
	// IDR 16,000.00 -> USD 1.00
	got, err := tbl.Convert(1_600_000, "IDR", "USD")
	if err != nil || got != 100 { t.Fatalf("IDR->USD: %d %v", got, err) }
	// USD 1.00 -> IDR 16,000.00
	got, err = tbl.Convert(100, "usd", "idr")
	if err != nil || got != 1_600_000 { t.Fatalf("USD->IDR: %d %v", got, err) }
	// JPY has no minor units: IDR 1,000.00 -> 9.5 JPY rounds half to even -> 10
	got, err = tbl.Convert(100_000, "IDR", "JPY")
	if err != nil || got != 10 { t.Fatalf("IDR->JPY: %d %v", got, err) }
	if _, err := tbl.Convert(1, "IDR", "EUR"); !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("expected unknown currency, got %v", err)
	}
	if got, _ := tbl.Convert(42, "EUR", "EUR"); got != 42 { t.Fatalf("identity conversion") }
}
