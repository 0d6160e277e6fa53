// Command bvh-export converts recorded landmark archives into BVH files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/banshee-data/nocap/internal/api"
	"github.com/banshee-data/nocap/internal/config"
	"github.com/banshee-data/nocap/internal/convert"
	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/version"
)

var (
	inPath      = flag.String("in", "", "Archive JSON file or directory of archives")
	outDir      = flag.String("out", "", "Output directory (defaults to outbox_dir)")
	profile     = flag.String("profile", "", "Skeleton profile (simple, manny, minimal)")
	fps         = flag.Float64("fps", 0, "Override the archive frame rate")
	lengthUnits = flag.String("units", "", "Position units (m, cm, mm, in); overrides position_scale")
	plot        = flag.Bool("plot", false, "Write PNG rotation plots next to each BVH")
	watch       = flag.Bool("watch", false, "Watch the inbox directory and convert new archives")
	configPath  = flag.String("config", "", "Path to export config JSON")
	upload      = flag.String("upload", "", "Also upload each archive to a capture server at this URL")
	label       = flag.String("label", "", "Label for uploaded archives")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func loadConfig() (*config.ExportConfig, error) {
	if *configPath != "" {
		return config.LoadExportConfig(*configPath)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.LoadExportConfig(config.DefaultConfigPath)
	}
	return config.DefaultExportConfig(), nil
}

// inputs expands -in into the list of archive files to convert.
func inputs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	files, err := filepath.Glob(filepath.Join(path, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no *.json archives in %s", path)
	}
	return files, nil
}

func uploadArchive(ctx context.Context, c *api.Client, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	a, err := landmark.ReadArchive(f)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	id, err := c.UploadArchive(ctx, a, *label)
	if err != nil {
		return err
	}
	log.Printf("uploaded %s as %s", filepath.Base(path), id)
	return nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *profile != "" {
		cfg.Profile = profile
	}
	if *lengthUnits != "" {
		cfg.PositionUnits = lengthUnits
		cfg.PositionScale = nil
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid -units: %v", err)
		}
	}
	hierarchy, err := cfg.Hierarchy()
	if err != nil {
		log.Fatalf("invalid skeleton configuration: %v", err)
	}

	out := *outDir
	if out == "" {
		out = cfg.GetOutboxDir()
	}
	conv := &convert.Converter{
		Hierarchy:    hierarchy,
		FrameRate:    *fps,
		FallbackRate: cfg.GetFrameRate(),
		Plot:         *plot,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *watch {
		inbox := cfg.GetInboxDir()
		if *inPath != "" {
			inbox = *inPath
		}
		w := convert.NewWatcher(conv, inbox, out)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			log.Fatalf("watch failed: %v", err)
		}
		return
	}

	if *inPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	files, err := inputs(*inPath)
	if err != nil {
		log.Fatalf("failed to read input: %v", err)
	}

	var client *api.Client
	if *upload != "" {
		client = api.NewClient(*upload, nil)
	}

	failed := 0
	for _, file := range files {
		res, err := conv.ConvertFile(file, out)
		if err != nil {
			log.Printf("convert %s: %v", file, err)
			failed++
			continue
		}
		log.Printf("%s -> %s (%d frames, profile %s)", file, res.Output, res.Frames, hierarchy.Name())
		for _, p := range res.Plots {
			log.Printf("  plot %s", p)
		}
		if client != nil {
			if err := uploadArchive(ctx, client, file); err != nil {
				log.Printf("upload %s: %v", file, err)
				failed++
			}
		}
	}
	if failed > 0 {
		log.Fatalf("%d of %d archives failed", failed, len(files))
	}
}
