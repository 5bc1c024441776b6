package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/flourish/internal/app"
	"github.com/dshills/flourish/internal/config"
	"github.com/dshills/flourish/internal/dispatch"
	"github.com/dshills/flourish/internal/events"
	"github.com/dshills/flourish/internal/script"
	"github.com/dshills/flourish/internal/store"
)

var hookScript string

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted retail-ops session against the runtime",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDemo(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	demoCmd.Flags().StringVar(&hookScript, "hooks", "", "Path to a Lua hook script")
	rootCmd.AddCommand(demoCmd)
}

func runDemo() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts := []app.Option{app.WithLogger(slog.Default())}
	if hookScript != "" {
		hooks, err := script.Load(hookScript, script.WithLogger(slog.Default()))
		if err != nil {
			return err
		}
		opts = append(opts, app.WithHooks(hooks))
	}

	a, err := app.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	ctx := context.Background()

	// Watch everything the session publishes.
	_, _, err = a.Dispatcher.SubscribeAny(func(_ context.Context, ev dispatch.Event) (any, error) {
		fmt.Printf("  event %-24s source=%s\n", ev.Name, ev.Source)
		return nil, nil
	})
	if err != nil {
		return err
	}

	fmt.Println("recording yesterday's performance:")
	_, err = a.Dispatcher.Publish(ctx, events.PerformanceRecorded, events.PerformanceEntry{
		Date:      time.Now().AddDate(0, 0, -1).Format("2006-01-02"),
		StoreID:   "store-01",
		ProductID: "sourdough",
		Sold:      42,
		Discarded: 3,
		Revenue:   12600,
	}, dispatch.WithSource("demo"))
	if err != nil {
		return err
	}

	fmt.Println("simulating tomorrow's order:")
	_, err = a.Dispatcher.Publish(ctx, events.OrderSimulated, events.OrderSimulation{
		Date:    time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		StoreID: "store-01",
		Lines: []events.OrderLine{
			{ProductID: "sourdough", Quantity: 45},
			{ProductID: "baguette", Quantity: 30},
		},
	}, dispatch.WithSource("demo"))
	if err != nil {
		return err
	}

	fmt.Println("caching the product catalog:")
	catalog, err := a.Store.FetchCache(ctx, "catalog", 0, func(_ context.Context) (any, error) {
		return []string{"sourdough", "baguette", "croissant"}, nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("  catalog: %v\n", catalog)

	fmt.Println("switching theme:")
	if err := a.Store.UpdateSettings(map[string]any{"theme": "dark"}); err != nil {
		return err
	}

	if _, err := a.Store.AddNotification(store.Notification{
		Type:    store.NotifySuccess,
		Message: "demo session complete",
	}); err != nil {
		return err
	}

	stats := a.Dispatcher.Stats()
	fmt.Printf("published=%d invoked=%d errors=%d\n",
		stats.EventsPublished, stats.HandlersInvoked, stats.HandlerErrors)
	fmt.Println("recent events:")
	for _, ev := range a.Dispatcher.History(10) {
		fmt.Printf("  %s %s\n", ev.Timestamp.Format(time.TimeOnly), ev.Name)
	}
	return nil
}
