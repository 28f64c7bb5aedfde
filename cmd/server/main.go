package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"anchorwatch/internal/adapter"
	"anchorwatch/internal/archive"
	"anchorwatch/internal/codec"
	"anchorwatch/internal/config"
	"anchorwatch/internal/handler"
	"anchorwatch/internal/hub"
	"anchorwatch/internal/locate"
	"anchorwatch/internal/metrics"
	"anchorwatch/internal/scheduler"
	"anchorwatch/internal/service"
	"anchorwatch/internal/store"
	"anchorwatch/internal/watcher"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Config file path (default: search standard locations)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting anchorwatch server...")

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if path != "" {
		log.Printf("Config loaded: %s", path)
	} else {
		log.Println("No config file found, using defaults")
	}
	log.Print(cfg.Summary())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func run(ctx context.Context, cfg *config.Config) error {
	repo, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer repo.Close()

	m := metrics.New()
	eventBus := service.NewEventBus()
	sseHub := hub.New()

	// Reconciliation pipeline
	reconciler := service.NewReconciler(
		adapter.NewDetectionFetcher(repo, cfg.Poll.BatchSize),
		adapter.NewWhitelistFetcher(repo),
		cfg.Poll.NotificationTTL.Duration(),
	)

	monitorOpts := []service.MonitorOption{
		service.WithRecorder(m),
		service.WithNotificationTTL(cfg.Poll.NotificationTTL.Duration()),
	}
	if cfg.Archive.Enabled {
		archiver, err := archive.New(ctx, archive.Config{
			Bucket:    cfg.Archive.Bucket,
			Region:    cfg.Archive.Region,
			Endpoint:  cfg.Archive.Endpoint,
			Prefix:    cfg.Archive.Prefix,
			PathStyle: cfg.Archive.PathStyle,
		})
		if err != nil {
			return fmt.Errorf("init archive: %w", err)
		}
		monitorOpts = append(monitorOpts, service.WithArchiver(archiver))
		log.Printf("Snapshot archive enabled: s3://%s/%s", cfg.Archive.Bucket, cfg.Archive.Prefix)
	}
	monitor := service.NewMonitor(reconciler, eventBus, monitorOpts...)

	sched := scheduler.New(func(ctx context.Context, reason string) error {
		_, err := monitor.RunCycle(ctx, reason)
		return err
	}, cfg.Poll.Interval.Duration(), scheduler.WithCycleTimeout(cfg.Poll.CycleTimeout.Duration()))

	// Services
	whitelistSvc := service.NewWhitelistService(repo, eventBus, sched)
	whitelistSvc.SetRecorder(m)

	settings := cfg.LocateSettings()
	ingestSvc := service.NewIngestService(repo, locate.NewTracker(settings, cfg.AnchorColumns()), cfg.Ingest.TargetMACs, eventBus)
	ingestSvc.SetRecorder(m)

	// Anchor probe
	hosts := make(map[string]string, len(cfg.Anchors.Hosts))
	targets := make([]adapter.AnchorTarget, 0, len(cfg.Anchors.Hosts))
	for _, h := range cfg.Anchors.Hosts {
		hosts[h.ID] = h.Host
		targets = append(targets, adapter.AnchorTarget{ID: h.ID, Host: h.Host})
	}
	anchorSvc := service.NewAnchorService(hosts, eventBus)
	anchorSvc.SetRecorder(m)

	adapterRegistry := adapter.NewRegistry(anchorSvc.HandleReport)
	adapterRegistry.SetAdapterEventHandler(func(eventType string, payload interface{}) {
		eventBus.Publish(service.Event{
			Type:    service.EventAdapterProgress,
			Payload: map[string]interface{}{"event": eventType, "data": payload},
		})
	})
	if cfg.Anchors.Probe && len(targets) > 0 {
		probe := adapter.NewNmapAdapter(targets,
			adapter.WithInterval(cfg.Anchors.Interval.Duration()),
			adapter.WithTimeout(cfg.Anchors.Timeout.Duration()),
			adapter.WithSkipHostDiscovery(cfg.Anchors.SkipHostDiscovery),
		)
		if err := adapterRegistry.Register(probe, adapter.AdapterConfig{
			Enabled:      true,
			PollInterval: cfg.Anchors.Interval.Duration().String(),
		}); err != nil {
			return fmt.Errorf("register anchor probe: %w", err)
		}
	}
	for _, info := range adapterRegistry.ListAdapters() {
		log.Printf("Adapter %s (%s) every %s", info.Name, info.Type, info.PollInterval)
	}

	// HTTP
	detectionHandler := handler.NewDetectionHandler(monitor, sched, cfg.Poll.RefreshRate, cfg.Poll.RefreshBurst)
	whitelistHandler := handler.NewWhitelistHandler(whitelistSvc)
	ingestHandler := handler.NewIngestHandler(ingestSvc, anchorSvc)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/detections", detectionHandler.GetDetections)
	mux.HandleFunc("GET /api/status", detectionHandler.GetStatus)
	mux.HandleFunc("POST /api/refresh", detectionHandler.Refresh)

	mux.HandleFunc("GET /api/whitelist", whitelistHandler.List)
	mux.HandleFunc("POST /api/whitelist", whitelistHandler.Add)

	mux.HandleFunc("POST /api/upload", ingestHandler.Upload)
	mux.HandleFunc("GET /api/anchors", ingestHandler.ListAnchors)

	mux.HandleFunc("GET /api/export/json", detectionHandler.ExportJSON)
	mux.HandleFunc("GET /api/export/yaml", detectionHandler.ExportYAML)

	mux.Handle("GET /events", sseHub)
	mux.Handle("GET /metrics", m.Handler())

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: handler.Chain(mux,
			handler.Recover,
			handler.CORS,
			handler.Logger,
		),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sseHub.Run(gctx)
		return nil
	})

	// Connect event bus to SSE hub
	g.Go(func() error {
		events := make(chan service.Event, 100)
		eventBus.Subscribe(events)
		defer eventBus.Unsubscribe(events)
		for {
			select {
			case <-gctx.Done():
				return nil
			case event := <-events:
				sseHub.Broadcast(string(event.Type), event.Payload)
			}
		}
	})

	if seed := cfg.Whitelist.SeedFile; seed != "" {
		importSeed(gctx, whitelistSvc, seed)
		w := watcher.New(seed, func(ctx context.Context, path string) {
			importSeed(ctx, whitelistSvc, path)
		})
		g.Go(func() error {
			if err := w.Watch(gctx); err != nil {
				log.Printf("Seed watcher stopped: %v", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		pruneTracker(gctx, ingestSvc, cfg.Ingest.MaxStale.Duration())
		return nil
	})

	if err := sched.Start(gctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := adapterRegistry.Start(gctx); err != nil {
		log.Printf("Warning: Failed to start adapter registry: %v", err)
	}

	g.Go(func() error {
		log.Printf("Server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		if err := adapterRegistry.Stop(); err != nil {
			log.Printf("Adapter registry shutdown error: %v", err)
		}
		sched.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		return nil
	})

	return g.Wait()
}

// importSeed loads the whitelist seed file through the normal insert path
func importSeed(ctx context.Context, svc *service.WhitelistService, path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("Failed to open whitelist seed %s: %v", path, err)
		return
	}
	defer f.Close()

	macs, err := codec.NewYAMLCodec().ParseWhitelist(f)
	if err != nil {
		log.Printf("Failed to parse whitelist seed %s: %v", path, err)
		return
	}

	res, err := svc.Import(ctx, macs)
	if err != nil {
		log.Printf("Whitelist seed import failed after %d entries: %v", res.Added, err)
		return
	}
	log.Printf("Whitelist seed %s: %d added, %d duplicates, %d invalid", path, res.Added, res.Duplicates, res.Invalid)
}

// pruneTracker forgets devices that stopped reporting
func pruneTracker(ctx context.Context, svc *service.IngestService, every time.Duration) {
	if every <= 0 {
		every = 4 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svc.Prune(); n > 0 {
				log.Printf("Ingest: pruned %d stale devices", n)
			}
		}
	}
}
