// Package cli wires the offline engine together and drives it from a small
// terminal REPL.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mlodari/camposanto/internal/config"
	"github.com/mlodari/camposanto/internal/connectivity"
	"github.com/mlodari/camposanto/internal/gateway"
	"github.com/mlodari/camposanto/internal/logging"
	"github.com/mlodari/camposanto/internal/models"
	"github.com/mlodari/camposanto/internal/notify"
	"github.com/mlodari/camposanto/internal/offline"
	"github.com/mlodari/camposanto/internal/webcache"

	_ "modernc.org/sqlite"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	registry    *models.Registry
	monitor     *connectivity.Monitor
	manager     *offline.Manager
	interceptor *webcache.Interceptor
	notifier    *notify.Notifier
}

func NewApp(c *config.Config, logger logging.Logger) (*App, error) {
	apiURL, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}

	registry := models.DefaultRegistry()
	notifier := notify.NewNotifier()
	monitor := connectivity.NewMonitor(probe(apiURL), logger)

	// The sync hook closes over the manager, which needs the interceptor's
	// transport to exist first.
	var manager *offline.Manager
	interceptor := webcache.New(webcache.Options{
		APIHost:    apiURL.Host,
		DataTables: registry.Names(),
		TTL:        c.CacheTTL,
		Version:    c.CacheVersion,
		Logger:     logger,
		SyncHook: func(ctx context.Context) error {
			if manager == nil {
				return nil
			}
			return manager.SyncChanges(ctx)
		},
	})
	interceptor.Activate()

	httpClient := &http.Client{Transport: interceptor}
	tokens := gateway.NewTokenSource(c.AuthToken, c.RefreshToken, c.APIBaseURL+"/auth/v1/token", httpClient)
	gw := gateway.NewHTTPGateway(c.APIBaseURL, httpClient, tokens)

	manager = offline.NewManager(offline.Options{
		DBPath:             c.LocalDBPath,
		Gateway:            gw,
		Monitor:            monitor,
		Registry:           registry,
		Notifier:           notifier,
		Logger:             logger,
		StalenessThreshold: c.StalenessThreshold,
	})

	return &App{
		config:      c,
		logger:      logger,
		registry:    registry,
		monitor:     monitor,
		manager:     manager,
		interceptor: interceptor,
		notifier:    notifier,
	}, nil
}

// probe reads the platform's current reachability once, for the monitor's
// initial state.
func probe(apiURL *url.URL) func() bool {
	host := apiURL.Host
	if apiURL.Port() == "" {
		switch apiURL.Scheme {
		case "https":
			host += ":443"
		default:
			host += ":80"
		}
	}
	return func() bool {
		conn, err := net.DialTimeout("tcp", host, 2*time.Second)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}

func (a *App) Run(ctx context.Context) {
	unsubscribe := a.notifier.Subscribe(func(n notify.Notification) {
		printlnFn(fmt.Sprintf("[%s] %s", n.Level, n.Message))
	})
	defer unsubscribe()

	if err := a.manager.Initialize(ctx); err != nil {
		a.logger.Error(ctx, "manager initialization failed", "error", err)
	}
	defer a.manager.Close()

	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}

func (a *App) status() string {
	if a.monitor.Online() {
		return "online"
	}
	return "offline"
}

func (a *App) List(ctx context.Context, domain string) error {
	recs, err := a.manager.GetAll(ctx, domain)
	if err != nil {
		return err
	}
	dom, err := a.registry.Lookup(domain)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		printlnFn(fmt.Sprintf("%-12s %s", rec.ID(), rec.Descriptor(dom.DescriptorField)))
	}
	printlnFn(fmt.Sprintf("%d record(s)", len(recs)))
	return nil
}

func (a *App) Show(ctx context.Context, domain, id string) error {
	rec, err := a.manager.GetByID(ctx, domain, id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	printlnFn(string(data))
	return nil
}

// Set saves a record from a JSON literal. An empty id inserts, a non-empty
// id updates.
func (a *App) Set(ctx context.Context, domain, id, jsonData string) error {
	var rec models.Record
	if err := json.Unmarshal([]byte(jsonData), &rec); err != nil {
		return fmt.Errorf("invalid record JSON: %w", err)
	}
	return a.manager.Save(ctx, domain, rec, id)
}

func (a *App) Del(ctx context.Context, domain, id string) error {
	return a.manager.Delete(ctx, domain, id)
}

func (a *App) Sync(ctx context.Context) error {
	return a.interceptor.HandleMessage(ctx, webcache.Message{Kind: webcache.MessageTriggerSync})
}

func (a *App) Pending(ctx context.Context) error {
	n, err := a.manager.PendingCount(ctx)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("%d pending change(s)", n))
	return nil
}

// SetOnline asserts connectivity manually, the way a platform signal would.
func (a *App) SetOnline(online bool) {
	a.monitor.Set(online)
}

// parseSetArgs splits "set <domain> [id] <json>" arguments: the JSON literal
// starts at the first '{'.
func parseSetArgs(args []string) (domain, id, jsonData string, err error) {
	if len(args) < 2 {
		return "", "", "", fmt.Errorf("usage: set <domain> [id] <json>")
	}
	domain = args[0]
	rest := args[1:]
	if !strings.HasPrefix(rest[0], "{") {
		id = rest[0]
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return "", "", "", fmt.Errorf("usage: set <domain> [id] <json>")
	}
	return domain, id, strings.Join(rest, " "), nil
}
