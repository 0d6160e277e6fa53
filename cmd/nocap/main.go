package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/nocap/internal/api"
	"github.com/banshee-data/nocap/internal/config"
	"github.com/banshee-data/nocap/internal/convert"
	"github.com/banshee-data/nocap/internal/recording"
	"github.com/banshee-data/nocap/internal/store"
	"github.com/banshee-data/nocap/internal/synthetic"
	"github.com/banshee-data/nocap/internal/timeutil"
	"github.com/banshee-data/nocap/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	configPath  = flag.String("config", "", "Path to export config JSON (defaults to config/export.defaults.json)")
	dbPath      = flag.String("db", "", "Recording archive database (overrides archive_db)")
	devMode     = flag.Bool("dev", false, "Feed a synthetic walker into the capture buffer")
	watchInbox  = flag.Bool("watch", false, "Convert archives dropped into inbox_dir")
	allowOrigin = flag.String("allow-origin", "", "Comma-separated browser origins allowed to open the landmark stream")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func loadConfig() *config.ExportConfig {
	path := *configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return config.DefaultExportConfig()
		}
		path = config.DefaultConfigPath
	}
	cfg, err := config.LoadExportConfig(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := loadConfig()
	hierarchy, err := cfg.Hierarchy()
	if err != nil {
		log.Fatalf("invalid skeleton configuration: %v", err)
	}
	log.Printf("nocap %s: profile %s, %d joints, %.2f fps", version.String(), hierarchy.Name(), hierarchy.Len(), cfg.GetFrameRate())

	path := cfg.GetArchiveDB()
	if *dbPath != "" {
		path = *dbPath
	}
	st, err := store.Open(path)
	if err != nil {
		log.Fatalf("Failed to open recording archive: %v", err)
	}
	defer st.Close()

	clock := timeutil.RealClock{}
	buf := recording.NewBuffer(cfg.GetLandmarkCount(), clock)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *devMode {
		walker := synthetic.NewWalker(time.Now().UnixNano())
		walker.FrameRate = cfg.GetFrameRate()
		walker.Jitter = 0.004
		walker.DropoutRate = 0.01
		producer := recording.NewProducer(buf, walker, clock, cfg.GetCaptureInterval())

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := producer.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("synthetic producer failed: %v", err)
			}
			accepted, refused := producer.Counts()
			log.Printf("synthetic producer stopped: %d frames recorded, %d offered while idle", accepted, refused)
		}()
	}

	if *watchInbox {
		conv := &convert.Converter{Hierarchy: hierarchy, FallbackRate: cfg.GetFrameRate()}
		watcher := convert.NewWatcher(conv, cfg.GetInboxDir(), cfg.GetOutboxDir())

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("inbox watcher failed: %v", err)
			}
			log.Print("inbox watcher terminated")
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		apiServer := api.NewServer(buf, hierarchy, st, cfg)
		apiServer.AllowedOrigins = api.SplitOrigins(*allowOrigin)
		mux := apiServer.ServeMux()
		if err := st.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach admin routes: %v", err)
		}

		server := &http.Server{
			Addr:              *listen,
			Handler:           api.LoggingMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("failed to start server: %v", err)
				stop()
			}
		}()
		log.Printf("listening on %s", *listen)

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()

	// A session still recording at shutdown is archived rather than lost.
	if buf.Active() {
		rec := buf.Stop()
		if len(rec.Frames) > 0 {
			if _, err := st.SaveRecording(rec, cfg.GetFrameRate()); err != nil {
				log.Printf("failed to archive in-flight recording: %v", err)
			} else {
				log.Printf("archived in-flight recording %s (%d frames)", rec.SessionID, len(rec.Frames))
			}
		}
	}
	log.Printf("Graceful shutdown complete")
}
