// Command twinklr-render is the CLI entrypoint: a one-shot render
// (--config job file + --audio in, .xsq + compliance report out) or,
// with --serve, a long-running gRPC render service. Grounded on
// cmd/engine/main.go's wiring order: parse config, set up logging, open
// dependencies, prefer a remote worker falling back to a local
// placeholder, then either run once or serve.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/cartomix/twinklr/internal/audioclient"
	"github.com/cartomix/twinklr/internal/auth"
	"github.com/cartomix/twinklr/internal/compilecache"
	"github.com/cartomix/twinklr/internal/config"
	"github.com/cartomix/twinklr/internal/dimmer"
	"github.com/cartomix/twinklr/internal/geometry"
	"github.com/cartomix/twinklr/internal/jobfile"
	"github.com/cartomix/twinklr/internal/logging"
	"github.com/cartomix/twinklr/internal/movement"
	"github.com/cartomix/twinklr/internal/pipeline"
	"github.com/cartomix/twinklr/internal/report"
	"github.com/cartomix/twinklr/internal/rpcsvc"
	"github.com/cartomix/twinklr/internal/xsq"
)

const serviceName = "twinklr.rpcsvc.RenderService"

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error("failed to create data directory", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	cache, err := compilecache.Open(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to open compile cache", "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	analyzer := dialAnalyzer(cfg, logger)
	defer analyzer.Close()

	if cfg.Serve {
		serve(cfg, logger, analyzer, cache)
		return
	}

	if err := runOnce(cfg, logger, analyzer, cache); err != nil {
		logger.Error("render failed", "error", err)
		os.Exit(1)
	}
}

// dialAnalyzer prefers a reachable analyzer worker, falling back to the
// local CPU placeholder - the same preference cmd/engine/main.go applies
// for its own analyzer backend.
func dialAnalyzer(cfg *config.Config, logger *slog.Logger) audioclient.Analyzer {
	if cfg.AnalyzerAddr == "" {
		logger.Warn("no analyzer-addr configured, using CPU fallback analyzer")
		return audioclient.NewCPUFallback(logger)
	}
	client, err := audioclient.NewGRPCClient(cfg.AnalyzerAddr, logger)
	if err != nil {
		logger.Warn("analyzer worker unavailable, falling back to CPU", "addr", cfg.AnalyzerAddr, "error", err)
		return audioclient.NewCPUFallback(logger)
	}
	logger.Info("connected to analyzer worker", "addr", cfg.AnalyzerAddr)
	return client
}

func runOnce(cfg *config.Config, logger *slog.Logger, analyzer audioclient.Analyzer, cache *compilecache.DB) error {
	job, err := jobfile.Load(cfg.PlanPath)
	if err != nil {
		return err
	}
	resolved, err := job.Resolve()
	if err != nil {
		return err
	}

	appCfg, err := config.LoadAppConfig(cfg.AppConfigPath)
	if err != nil {
		return err
	}

	analysis, err := analyzer.Analyze(context.Background(), cfg.AudioPath)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", cfg.AudioPath, err)
	}
	if resolved.Song.MediaFile == "" {
		resolved.Song.MediaFile = cfg.AudioPath
	}

	engine := pipeline.NewEngine(resolved.Rig, resolved.Templates, movement.NewRegistry(), dimmer.NewRegistry(), geometry.NewEngine(), logger)
	engine.Splits = resolved.Splits
	engine.Presets = resolved.Presets
	engine.GapFill.SoftHomePanDeg = appCfg.SoftHomePan()
	engine.GapFill.SoftHomeTiltDeg = appCfg.SoftHomeTilt()
	engine.GapFill.LargeGapThresholdMs = appCfg.SmallGapThresholdMs()
	engine.NSamples = appCfg.NSamples()

	result, err := engine.Run(resolved.Plan, analysis.Grid, resolved.Song, resolved.MacroPlan, analysis.Profile)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	base := outputBase(cfg.PlanPath, resolved.Song.MediaFile)
	xsqPath := filepath.Join(cfg.OutDir, base+".xsq")
	reportPath := filepath.Join(cfg.OutDir, base+".compliance.json")

	if err := xsq.Write(result.Document, xsqPath); err != nil {
		return fmt.Errorf("write xsq: %w", err)
	}

	rpt := report.Generate(resolved.Song.MediaFile, result.Segments, analysis.Grid.Confidence, report.DefaultThresholds())
	if err := report.WriteJSON(rpt, reportPath); err != nil {
		return fmt.Errorf("write compliance report: %w", err)
	}
	for _, w := range rpt.Warnings {
		logger.Warn("compliance warning", "warning", w)
	}

	jobBytes, err := os.ReadFile(cfg.PlanPath)
	if err == nil {
		audioHash, hashErr := hashAudioFile(cfg.AudioPath)
		if hashErr != nil {
			logger.Warn("failed to hash audio file for compile cache key", "error", hashErr)
		} else {
			key := compilecache.Key(jobBytes, audioHash)
			if err := cache.Put(key, resolved.Song.MediaFile, result.Document, result.Segments, rpt); err != nil {
				logger.Warn("failed to populate compile cache", "error", err)
			}
		}
	}

	logger.Info("render complete", "xsq", xsqPath, "segments", len(result.Segments), "compliant", rpt.OverallCompliant)
	return nil
}

// hashAudioFile identifies the audio input for the compile-cache key. A
// partial hash (first 64KB) is enough to invalidate the cache when the
// track changes without reading a potentially large file in full.
func hashAudioFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyN(h, f, 64*1024); err != nil && err != io.EOF {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func outputBase(planPath, mediaFile string) string {
	base := filepath.Base(planPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		base = strings.TrimSuffix(filepath.Base(mediaFile), filepath.Ext(mediaFile))
	}
	if base == "" {
		base = "render"
	}
	return base
}

func serve(cfg *config.Config, logger *slog.Logger, analyzer audioclient.Analyzer, cache *compilecache.DB) {
	authCfg := auth.Config{Enabled: cfg.AuthEnabled}
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(auth.Interceptor(authCfg, logger)),
		grpc.StreamInterceptor(auth.StreamInterceptor(authCfg, logger)),
	)

	rpcsvc.Register(grpcServer, rpcsvc.NewService(logger, analyzer, cache))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(grpcServer)

	addr := fmt.Sprintf(":%d", cfg.ServePort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen", "addr", addr, "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig)
		healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		grpcServer.GracefulStop()
	}()

	logger.Info("starting render service", "port", cfg.ServePort, "auth_enabled", cfg.AuthEnabled)
	if err := grpcServer.Serve(lis); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
