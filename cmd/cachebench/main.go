package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/tuannm99/novacache/internal"
	"github.com/tuannm99/novacache/internal/bcache"
	"github.com/tuannm99/novacache/internal/metrics"
	"github.com/tuannm99/novacache/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("cachebench", pflag.ExitOnError)
	configPath := flags.String("config", "", "Path to a yaml config file")
	memDevice := flags.Bool("mem", false, "Use an in-memory device instead of image files")
	create := flags.Bool("create", false, "Create a zero-filled device image before running")
	metricsFile := flags.String("metrics-file", "", "Write final metrics in Prometheus text format to this file")

	wl := defaultWorkload()
	flags.IntVar(&wl.Workers, "workers", wl.Workers, "Concurrent cache clients")
	flags.IntVar(&wl.Ops, "ops", wl.Ops, "Operations per client")
	flags.IntVar(&wl.WritePercent, "write-percent", wl.WritePercent, "Share of operations that are writes")
	flags.Uint32Var(&wl.MetadataSectors, "metadata-sectors", wl.MetadataSectors,
		"Writes to sectors below this are mostly metadata; must be less than --capacity")
	flags.Uint64Var(&wl.Seed, "seed", wl.Seed, "Random seed")

	flags.Int("capacity", 64, "Cache slots")
	flags.Bool("check-invariants", false, "Verify slot table invariants after every operation")
	flags.String("workdir", "./data", "Directory holding the device image")
	flags.Uint32("sectors", 4096, "Device size in sectors")
	flags.Int("io-limit", 0, "Device sector operations per second (0 = unlimited)")
	flags.String("log-level", "info", "Log level")
	_ = flags.Parse(os.Args[1:])

	v := internal.NewViper()
	for key, flag := range map[string]string{
		"cache.capacity":         "capacity",
		"cache.check_invariants": "check-invariants",
		"device.workdir":         "workdir",
		"device.sectors":         "sectors",
		"device.io_limit":        "io-limit",
		"log.level":              "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			log.Fatalf("bind flag %s: %v", flag, err)
		}
	}
	if *configPath != "" {
		v.SetConfigFile(*configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			log.Fatalf("Failed to read config: %v", err)
		}
	}

	cfg, err := internal.DecodeConfig(v)
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	logger, err := internal.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		log.Fatalf("Invalid log config: %v", err)
	}
	slog.SetDefault(logger)

	dev, closeDev, err := openDevice(cfg, *memDevice, *create)
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	defer closeDev()

	cache := bcache.New(storage.NewThrottledDevice(dev, cfg.Device.IOLimit), bcache.Config{
		Capacity:        cfg.Cache.Capacity,
		CheckInvariants: cfg.Cache.CheckInvariants,
		Logger:          logger,
	})

	// SIGINT/SIGTERM stop the clients; dirty sectors are still flushed below.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wl.Sectors = cfg.Device.Sectors
	logger.Info("cachebench started",
		"app", cfg.AppName,
		"capacity", cache.Capacity(),
		"sectors", wl.Sectors,
		"workers", wl.Workers,
		"ops", wl.Ops,
	)

	runErr := wl.Run(ctx, cache)
	if runErr != nil {
		logger.Error("workload failed", "err", runErr)
	}

	if err := cache.Close(); err != nil {
		logger.Error("final flush failed", "err", err)
		return 1
	}

	st := cache.Stats()
	logger.Info("cachebench finished",
		"hits", st.Hits,
		"misses", st.Misses,
		"hit_ratio", hitRatio(st),
		"evictions", st.Evictions,
		"write_backs", st.WriteBacks,
		"flushed", st.Flushed,
		"resident", st.Resident,
		"metadata", st.Metadata,
	)

	if *metricsFile != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(metrics.NewCollector("novacache", cache))
		if err := prometheus.WriteToTextfile(*metricsFile, reg); err != nil {
			logger.Error("write metrics", "path", *metricsFile, "err", err)
		}
	}

	if runErr != nil {
		return 1
	}
	return 0
}

func openDevice(cfg *internal.NovaCacheConfig, mem, create bool) (storage.Device, func(), error) {
	if mem {
		return storage.NewMemDevice(cfg.Device.Sectors), func() {}, nil
	}

	fs := storage.LocalFileSet{Dir: cfg.Device.Workdir, Base: cfg.Device.Base}
	if create {
		if err := storage.CreateImage(filepath.Join(fs.Dir, fs.Base), cfg.Device.Sectors); err != nil {
			return nil, nil, err
		}
	}
	n, err := storage.CountSectors(fs)
	if err != nil {
		return nil, nil, fmt.Errorf("scan image: %w", err)
	}
	slog.Info("device image", "dir", fs.Dir, "base", fs.Base, "sectors_on_disk", n)

	dev := storage.NewFileDevice(fs, cfg.Device.SectorsPerSegment, cfg.Device.Sectors)
	return dev, func() {
		if err := dev.Close(); err != nil {
			slog.Error("close device", "err", err)
		}
	}, nil
}

func hitRatio(st bcache.Stats) float64 {
	total := st.Hits + st.Misses
	if total == 0 {
		return 0
	}
	return float64(st.Hits) / float64(total)
}
