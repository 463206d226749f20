package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dvloznov/ledger-sync/internal/app"
	"github.com/dvloznov/ledger-sync/internal/catalog"
	"github.com/dvloznov/ledger-sync/internal/config"
	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/ledger"
	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/dvloznov/ledger-sync/internal/reconcile"
	"github.com/dvloznov/ledger-sync/internal/remote"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	switch os.Args[1] {
	case "sync":
		runSync(cfg, log)
	case "list":
		runList(cfg, log)
	case "create":
		runCreate(cfg, log)
	case "update":
		runUpdate(cfg, log)
	case "delete":
		runDelete(cfg, log)
	case "categories":
		runCategories(cfg, log)
	case "payment-methods":
		runPaymentMethods(cfg, log)
	case "payload":
		runPayload(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Ledger Sync CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  sync              Fetch the remote ledger and merge it into the local store")
	fmt.Println("  list              List top-level transactions with totals")
	fmt.Println("  create            Create a transaction")
	fmt.Println("  update            Update a confirmed transaction")
	fmt.Println("  delete            Delete a transaction and its items")
	fmt.Println("  categories        Search or create categories")
	fmt.Println("  payment-methods   List payment methods and balances")
	fmt.Println("  payload           Print an archived malformed payload")
	fmt.Println("  help              Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// setup builds the services with a bounded context. Callers must call the
// returned cleanup.
func setup(cfg *config.Config, log zerolog.Logger, timeout time.Duration) (context.Context, *app.App, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg)
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	return ctx, a, func() {
		a.Close()
		cancel()
	}
}

// fail prints the user-facing message for err and exits.
func fail(log zerolog.Logger, err error) {
	log.Debug().Err(err).Msg("Command failed")
	fmt.Fprintln(os.Stderr, reconcile.Message(err))

	var malformed *remote.MalformedPayloadError
	if errors.As(err, &malformed) && malformed.ArchiveURI != "" {
		fmt.Fprintf(os.Stderr, "The payload was archived at %s\n", malformed.ArchiveURI)
	}
	os.Exit(1)
}

func filterFlags(fs *flag.FlagSet) func() *remote.Filter {
	month := fs.Int("month", 0, "Month to sync (1-12, needs --year)")
	year := fs.Int("year", 0, "Year to sync")
	category := fs.String("category-id", "", "Only this category")
	method := fs.String("payment-method-id", "", "Only this payment method")
	return func() *remote.Filter {
		return &remote.Filter{Month: *month, Year: *year, CategoryID: *category, PaymentMethodID: *method}
	}
}

func runSync(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	filter := filterFlags(fs)
	fs.Parse(os.Args[2:])

	ctx, a, cleanup := setup(cfg, log, 2*time.Minute)
	defer cleanup()

	result, err := a.Engine.Sync(ctx, filter())
	if err != nil {
		fail(log, err)
	}
	printResult(result)
}

func printResult(r *reconcile.Result) {
	fmt.Printf("Total:    %s\n", r.Total)
	fmt.Printf("Pending:  %s\n", r.Pending)
	fmt.Printf("Fetched:  %d\n", r.Fetched)
	fmt.Printf("Inserted: %d  Updated: %d  Detached: %d  Deleted: %d\n", r.Inserted, r.Updated, r.Detached, r.Deleted)
}

func runList(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	doSync := fs.Bool("sync", cfg.DatabaseURL == "", "Sync before listing (default when the store is in-memory)")
	showItems := fs.Bool("items", false, "Show invoice line items")
	filter := filterFlags(fs)
	fs.Parse(os.Args[2:])

	ctx, a, cleanup := setup(cfg, log, 2*time.Minute)
	defer cleanup()

	if *doSync {
		if _, err := a.Engine.Sync(ctx, filter()); err != nil {
			fail(log, err)
		}
	}

	listing, err := a.Ledger.List(ctx)
	if err != nil {
		fail(log, err)
	}

	now := time.Now()
	fmt.Printf("=== Transactions (%d) ===\n", len(listing.Transactions))
	for i, t := range listing.Transactions {
		fmt.Printf("\n%d. %s [%s]\n", i+1, t.Description, t.BadgeText(now))
		fmt.Printf("   ID:       %s (remote %s)\n", t.ID, orDash(t.RemoteID))
		fmt.Printf("   Type:     %s\n", t.Kind)
		fmt.Printf("   Amount:   %s\n", t.Amount)
		fmt.Printf("   Due:      %s\n", t.DueDate.Format("2006-01-02"))
		if t.CategoryName != "" {
			fmt.Printf("   Category: %s\n", t.CategoryName)
		}
		if *showItems && len(t.ItemIDs) > 0 {
			items, err := a.Ledger.Items(ctx, t.ID)
			if err != nil {
				fail(log, err)
			}
			for _, item := range items {
				fmt.Printf("     - %s  %s\n", item.Amount, item.Description)
			}
		}
	}

	fmt.Printf("\nTotal:   %s\n", listing.Totals.Total)
	fmt.Printf("Pending: %s\n", listing.Totals.Pending)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func inputFlags(fs *flag.FlagSet) func() (ledger.Input, error) {
	amount := fs.String("amount", "", "Amount as a decimal string (required)")
	kind := fs.String("type", "expense", "income, expense or invoice")
	due := fs.String("due-date", time.Now().Format("2006-01-02"), "Due date in YYYY-MM-DD format")
	desc := fs.String("description", "", "Description (required)")
	category := fs.String("category-id", "", "Category ID")
	status := fs.String("status", "", "Status, e.g. pending or paid")
	method := fs.String("payment-method-id", "", "Payment method ID")
	return func() (ledger.Input, error) {
		dueDate, err := time.Parse("2006-01-02", *due)
		if err != nil {
			return ledger.Input{}, &domain.ValidationError{Field: "due_date", Reason: "expected YYYY-MM-DD"}
		}
		return ledger.Input{
			Amount:          *amount,
			Kind:            *kind,
			DueDate:         dueDate,
			Description:     *desc,
			CategoryID:      *category,
			Status:          *status,
			PaymentMethodID: *method,
		}, nil
	}
}

func runCreate(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	input := inputFlags(fs)
	fs.Parse(os.Args[2:])

	in, err := input()
	if err != nil {
		fail(log, err)
	}

	ctx, a, cleanup := setup(cfg, log, time.Minute)
	defer cleanup()

	t, err := a.Ledger.Create(ctx, in)
	if err != nil {
		fail(log, err)
	}
	fmt.Printf("Created %s (remote %s)\n", t.ID, t.RemoteID)
}

// resolveLocalID syncs and maps a remote ID onto its local entity, since a
// fresh in-memory store knows nothing yet.
func resolveLocalID(ctx context.Context, a *app.App, remoteID string) (string, error) {
	if _, err := a.Engine.Sync(ctx, nil); err != nil {
		return "", err
	}
	all, err := a.Store.ListAll(ctx)
	if err != nil {
		return "", err
	}
	for _, t := range all {
		if t.RemoteID == remoteID {
			return t.ID, nil
		}
	}
	return "", fmt.Errorf("remote transaction %s: %w", remoteID, errNotSynced)
}

var errNotSynced = errors.New("not found in the synced ledger")

func runUpdate(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	remoteID := fs.String("id", "", "Remote ID of the transaction (required)")
	input := inputFlags(fs)
	fs.Parse(os.Args[2:])

	if *remoteID == "" {
		log.Fatal().Msg("Error: --id is required")
	}
	in, err := input()
	if err != nil {
		fail(log, err)
	}

	ctx, a, cleanup := setup(cfg, log, 2*time.Minute)
	defer cleanup()

	localID, err := resolveLocalID(ctx, a, *remoteID)
	if err != nil {
		fail(log, err)
	}
	t, err := a.Ledger.Update(ctx, localID, in)
	if err != nil {
		fail(log, err)
	}
	fmt.Printf("Updated %s: %s %s\n", t.RemoteID, t.Amount, t.Description)
}

func runDelete(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	remoteID := fs.String("id", "", "Remote ID of the transaction (required)")
	fs.Parse(os.Args[2:])

	if *remoteID == "" {
		log.Fatal().Msg("Error: --id is required")
	}

	ctx, a, cleanup := setup(cfg, log, 2*time.Minute)
	defer cleanup()

	localID, err := resolveLocalID(ctx, a, *remoteID)
	if err != nil {
		fail(log, err)
	}
	if err := a.Ledger.Delete(ctx, localID); err != nil {
		fail(log, err)
	}
	fmt.Printf("Deleted %s\n", *remoteID)
}

func runCategories(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	name := fs.String("name", "", "Search by name (at least 3 characters)")
	create := fs.String("create", "", "Create a category with this name")
	parent := fs.String("parent-id", "", "Parent category ID for --create")
	fs.Parse(os.Args[2:])

	ctx, a, cleanup := setup(cfg, log, time.Minute)
	defer cleanup()

	if *create != "" {
		cat, err := a.Categories.Create(ctx, *create, *parent)
		if err != nil {
			fail(log, err)
		}
		fmt.Printf("Created category %s (%s)\n", cat.Name, cat.RemoteID)
		return
	}

	cats, err := a.Categories.Search(ctx, *name)
	if err != nil {
		fail(log, err)
	}
	for _, c := range cats {
		marker := ""
		if c.IsPredefined {
			marker = " *"
		}
		fmt.Printf("%-8s %s%s\n", c.RemoteID, c.Name, marker)
	}
}

func runPaymentMethods(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("payment-methods", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	ctx, a, cleanup := setup(cfg, log, time.Minute)
	defer cleanup()

	methods, err := a.PaymentMethods.List(ctx)
	if err != nil {
		fail(log, err)
	}
	for _, m := range methods {
		fmt.Printf("%-8s %-24s %-15s %s\n", m.RemoteID, m.Name, m.Type.DisplayName(), m.InitialBalance.StringFixed(2))
	}

	balances := catalog.TotalBalance(methods)
	types := make([]string, 0, len(balances))
	for typ := range balances {
		types = append(types, string(typ))
	}
	sort.Strings(types)
	fmt.Println()
	for _, typ := range types {
		t := domain.PaymentMethodType(typ)
		fmt.Printf("%s total: %s\n", t.DisplayName(), balances[t].StringFixed(2))
	}
}

func runPayload(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("payload", flag.ExitOnError)
	uri := fs.String("uri", "", "gs:// URI reported with a malformed payload error (required)")
	fs.Parse(os.Args[2:])

	if *uri == "" {
		log.Fatal().Msg("Error: --uri is required")
	}

	ctx, a, cleanup := setup(cfg, log, time.Minute)
	defer cleanup()

	if a.Archiver == nil {
		log.Fatal().Msg("Error: LEDGER_ARCHIVE_BUCKET is not configured")
	}
	data, err := a.Archiver.Fetch(ctx, *uri)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch payload")
	}
	os.Stdout.Write(data)
	fmt.Println()
}
