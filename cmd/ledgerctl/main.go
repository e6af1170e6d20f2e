// Command ledgerctl is an offline-capable client for the wallet ledger. It
// keeps a local cache and an offline queue under -data and syncs them with
// the server when it is reachable.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/tinoosan/walletledger/internal/client/api"
	"github.com/tinoosan/walletledger/internal/client/kv"
	"github.com/tinoosan/walletledger/internal/client/queue"
	"github.com/tinoosan/walletledger/internal/client/store"
	"github.com/tinoosan/walletledger/internal/client/syncer"
	"github.com/tinoosan/walletledger/internal/config"
	"github.com/tinoosan/walletledger/internal/errs"
	"github.com/tinoosan/walletledger/internal/ledger"
)

const usage = `usage: ledgerctl [flags] <command> [args]

commands:
  status                 show sync state, balances and pending transactions
  sync                   refresh from the server and drain the offline queue
  record [flags]         record a transaction (queued when offline)
  attention              list transactions rejected during sync
  retry <local_id>       requeue a rejected transaction
  discard <local_id>     drop a rejected transaction
`

type app struct {
	engine  *syncer.Engine
	manager *syncer.Manager
	queue   *queue.Queue
	store   *store.Store
	log     *slog.Logger
}

func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("ledgerctl", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage); fs.PrintDefaults() }
	baseURL := fs.String("server", envOr("LEDGER_URL", "http://localhost:8080"), "ledger server URL")
	token := fs.String("token", os.Getenv("LEDGER_TOKEN"), "bearer token")
	userID := fs.String("user", os.Getenv("LEDGER_USER_ID"), "user id (dev auth)")
	dataDir := fs.String("data", envOr("LEDGER_DATA_DIR", defaultDataDir()), "local state directory")
	offline := fs.Bool("offline", false, "do not contact the server")
	logLevel := fs.String("log-level", envOr("LOG_LEVEL", "warn"), "log level")
	_ = fs.Parse(os.Args[1:])

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.ParseLogLevel(*logLevel)}))
	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := open(*dataDir, *baseURL, *token, *userID, !*offline, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ledgerctl:", err)
		os.Exit(1)
	}
	if err := a.run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "ledgerctl:", err)
		os.Exit(1)
	}
}

func open(dir, baseURL, token, user string, online bool, logger *slog.Logger) (*app, error) {
	files, err := kv.OpenFile(dir)
	if err != nil { return nil, err }
	opts := api.Options{BaseURL: baseURL, Token: token}
	if user != "" {
		id, err := uuid.Parse(user)
		if err != nil { return nil, fmt.Errorf("invalid -user: %w", err) }
		opts.UserID = id
	}
	q := queue.New(files)
	s := store.New(files, logger)
	e := syncer.New(api.New(opts), q, s, syncer.Options{Online: online}, logger)
	return &app{engine: e, manager: syncer.NewManager(e), queue: q, store: s, log: logger}, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	rep, cached, err := a.engine.Bootstrap(ctx)
	if err != nil { return err }
	if cmd != "sync" { printNotice(rep) }

	switch cmd {
	case "status":
		if !cached {
			fmt.Println("no cached data; run `ledgerctl sync` while online")
			return nil
		}
		return a.status()
	case "sync":
		if !a.engine.IsOnline() { return errors.New("cannot sync with -offline") }
		// Bootstrap already drained; report what is left
		fmt.Printf("synced %d, remaining %d, needs attention %d\n", rep.Synced, rep.Remaining, len(a.queue.Attention()))
		printNotice(rep)
		return nil
	case "record":
		return a.record(ctx, args)
	case "attention":
		return a.attention()
	case "retry":
		if len(args) != 1 { return errors.New("usage: ledgerctl retry <local_id>") }
		t, err := a.manager.Retry(args[0])
		if err != nil { return err }
		fmt.Printf("requeued %s\n", t.LocalID)
		if a.engine.IsOnline() { printNotice(a.engine.Drain(ctx)) }
		return nil
	case "discard":
		if len(args) != 1 { return errors.New("usage: ledgerctl discard <local_id>") }
		return a.manager.Discard(args[0])
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *app) record(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	wallet := fs.String("wallet", "", "wallet id or name")
	category := fs.String("category", "", "category id or name")
	amount := fs.Int64("amount", 0, "amount in minor units")
	product := fs.String("product", "", "product name")
	note := fs.String("note", "", "note")
	qty := fs.Int("qty", 1, "quantity")
	date := fs.String("date", "", "effective date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil { return err }

	snap := a.store.Snapshot()
	req := ledger.SubmitRequest{AmountMinor: *amount, ProductName: *product, Note: *note, Quantity: *qty}
	var err error
	if req.WalletID, err = resolveWallet(snap, *wallet); err != nil { return err }
	if req.CategoryID, err = resolveCategory(snap, *category); err != nil { return err }
	if *date != "" {
		d, err := time.Parse(time.DateOnly, *date)
		if err != nil { return fmt.Errorf("%w: date must be YYYY-MM-DD", errs.ErrValidation) }
		req.Date = d
	}

	out, err := a.manager.Record(ctx, req)
	if err != nil { return err }
	if out.Queued {
		fmt.Println(out.Message)
		fmt.Printf("local_id: %s\n", out.Transaction.LocalID)
		return nil
	}
	fmt.Println(out.Message)
	fmt.Printf("transaction_id: %s\n", out.Transaction.ID)
	return nil
}

func (a *app) status() error {
	snap := a.store.Snapshot()
	balances := a.store.Balances()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "state:\t%s\n", a.engine.State())
	fmt.Fprintf(w, "online:\t%t\n", a.engine.IsOnline())
	fmt.Fprintf(w, "queued:\t%d\n", a.queue.Len())
	fmt.Fprintf(w, "needs attention:\t%d\n", len(a.queue.Attention()))
	if n := len(a.store.Unresolved()); n > 0 {
		fmt.Fprintf(w, "not in balances:\t%d (category not cached; run sync)\n", n)
	}
	fmt.Fprintf(w, "cached at:\t%s\n\n", snap.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintln(w, "WALLET\tID\tBALANCE\tINCOME\tEXPENSE")
	for _, wl := range snap.Wallets {
		t := balances[wl.ID]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", wl.Name, wl.ID, ledger.Format(wl.Currency, t.Balance), ledger.Format(wl.Currency, t.Income), ledger.Format(wl.Currency, t.Expense))
	}
	if pending := a.store.Pending(); len(pending) > 0 {
		fmt.Fprintln(w, "\nPENDING\tDIRECTION\tAMOUNT\tDATE")
		for _, p := range pending {
			dir := string(p.Direction)
			if p.Unresolved {
				dir = "unknown"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.LocalID, dir, ledger.Format(p.Currency, p.AmountMinor), p.Date.Format(time.DateOnly))
		}
	}
	return w.Flush()
}

func (a *app) attention() error {
	parked := a.queue.Attention()
	if len(parked) == 0 {
		fmt.Println("nothing needs attention")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LOCAL_ID\tAMOUNT\tCODE\tREASON")
	for _, p := range parked {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", p.LocalID, p.Payload.AmountMinor, p.Code, p.Reason)
	}
	return w.Flush()
}

func printNotice(rep syncer.Report) {
	if rep.Notice != "" { fmt.Fprintln(os.Stderr, rep.Notice) }
}

func resolveWallet(snap store.Snapshot, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil { return id, nil }
	for _, w := range snap.Wallets {
		if strings.EqualFold(w.Name, ref) { return w.ID, nil }
	}
	if ref == "" && len(snap.Wallets) == 1 { return snap.Wallets[0].ID, nil }
	return uuid.Nil, fmt.Errorf("%w: wallet %q", errs.ErrNotFound, ref)
}

func resolveCategory(snap store.Snapshot, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil { return id, nil }
	for _, c := range snap.Categories {
		if strings.EqualFold(c.Name, ref) { return c.ID, nil }
	}
	return uuid.Nil, fmt.Errorf("%w: category %q", errs.ErrNotFound, ref)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" { return v }
	return def
}

func defaultDataDir() string {
	if d, err := os.UserConfigDir(); err == nil { return filepath.Join(d, "walletledger") }
	return ".walletledger"
}
