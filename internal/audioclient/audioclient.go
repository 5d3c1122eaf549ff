// Package audioclient is the boundary to the external audio-analysis
// collaborator: the beat grid and audio profile this core never computes
// itself (no audio decoding/feature extraction, per the excluded
// subsystems). Grounded on the teacher's internal/analyzer package:
// Analyzer interface, a gRPC-backed Client, and a CPUFallback used when
// no analyzer worker is reachable. The wire messages here are plain
// JSON-tagged structs sent over a real gRPC connection via a registered
// JSON codec (jsonCodec, below) rather than protoc-generated stubs, since
// this port has no protobuf toolchain step; the connection management,
// structured logging, and fallback behavior otherwise mirror the
// teacher's client.go/fallback.go exactly.
package audioclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cartomix/twinklr/internal/beatgrid"
	"github.com/cartomix/twinklr/internal/plan"
)

// Result is one analyzed track: the beat grid the pipeline compiles
// against plus the optional descriptive AudioProfile.
type Result struct {
	Grid    *beatgrid.Grid
	Profile *plan.AudioProfile
}

// Analyzer abstracts the analysis backend, remote gRPC worker or local
// CPU fallback, the way the teacher's Analyzer interface abstracts the
// Swift worker vs. its CPU placeholder.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (Result, error)
	Close() error
}

// analyzeRequest/analyzeResponse are this package's wire messages,
// carried over gRPC via jsonCodec instead of generated protobuf types.
type analyzeRequest struct {
	Path string `json:"path"`
}

type analyzeResponse struct {
	ContentHash     string             `json:"content_hash"`
	TempoBPM        float64            `json:"tempo_bpm"`
	BeatsPerBar     int                `json:"beats_per_bar"`
	DurationMs      int64              `json:"duration_ms"`
	Confidence      float64            `json:"confidence"`
	OverallEnergy   float64            `json:"overall_energy"`
	SectionEnergy   map[string]float64 `json:"section_energy,omitempty"`
	DominantKey     string             `json:"dominant_key,omitempty"`
	EstimatedGenre  string             `json:"estimated_genre,omitempty"`
}

// GRPCClient wraps a gRPC connection to the external analyzer worker.
type GRPCClient struct {
	conn   *grpc.ClientConn
	logger *slog.Logger
}

// NewGRPCClient dials the analyzer worker at addr. Connection management
// mirrors the teacher's analyzer.NewClient (insecure transport, no
// blocking dial - failures surface on first RPC, letting the caller fall
// back to CPUFallback the same way cmd/engine/main.go does).
func NewGRPCClient(addr string, logger *slog.Logger) (*GRPCClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("audioclient: dial %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn, logger: logger}, nil
}

// Analyze sends an analysis request to the worker and converts its
// response into a beatgrid.Grid and plan.AudioProfile.
func (c *GRPCClient) Analyze(ctx context.Context, path string) (Result, error) {
	c.logger.Debug("audioclient: sending analysis request", "path", path)
	start := time.Now()

	req := &analyzeRequest{Path: path}
	resp := &analyzeResponse{}
	err := c.conn.Invoke(ctx, "/twinklr.audioclient.AudioAnalyzer/Analyze", req, resp,
		grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		c.logger.Error("audioclient: analysis failed", "path", path, "error", err, "duration", time.Since(start))
		return Result{}, fmt.Errorf("audioclient: analyze %s: %w", path, err)
	}

	c.logger.Info("audioclient: analysis complete", "path", path, "duration", time.Since(start), "bpm", resp.TempoBPM)
	return responseToResult(resp), nil
}

// Close closes the gRPC connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func responseToResult(resp *analyzeResponse) Result {
	grid := beatgrid.NewConstantBPM(resp.TempoBPM, resp.BeatsPerBar, resp.DurationMs)
	grid.Confidence = resp.Confidence
	return Result{
		Grid: grid,
		Profile: &plan.AudioProfile{
			OverallEnergy:  resp.OverallEnergy,
			SectionEnergy:  resp.SectionEnergy,
			DominantKey:    resp.DominantKey,
			EstimatedGenre: resp.EstimatedGenre,
		},
	}
}

// CPUFallback produces a placeholder constant-BPM grid when no analyzer
// worker is reachable, matching the teacher's CPUFallback: zero
// confidence, a fixed guessed tempo, content identity from a partial file
// hash rather than real feature extraction.
type CPUFallback struct {
	logger      *slog.Logger
	guessBPM    float64
	beatsPerBar int
}

// NewCPUFallback builds a CPU fallback guessing a 120 BPM / 4-beat grid,
// the same default tempo guess original_source falls back to absent
// detected tempo.
func NewCPUFallback(logger *slog.Logger) *CPUFallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &CPUFallback{logger: logger, guessBPM: 120, beatsPerBar: 4}
}

// Analyze produces a stub result: a constant-BPM grid with zero
// confidence and a neutral AudioProfile, enough to exercise the pipeline
// without the real analyzer worker.
func (f *CPUFallback) Analyze(ctx context.Context, path string) (Result, error) {
	f.logger.Warn("audioclient: using CPU fallback analyzer - results are placeholders", "path", path)

	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("audioclient: stat %s: %w", path, err)
	}
	contentHash, err := hashFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("audioclient: hash %s: %w", path, err)
	}

	durationMs := estimateDurationMs(info.Size())
	grid := beatgrid.NewConstantBPM(f.guessBPM, f.beatsPerBar, durationMs)
	f.logger.Debug("audioclient: CPU fallback grid", "content_hash", contentHash, "duration_ms", durationMs)

	return Result{
		Grid:    grid,
		Profile: &plan.AudioProfile{OverallEnergy: 0.5},
	}, nil
}

// Close is a no-op for the CPU fallback.
func (f *CPUFallback) Close() error { return nil }

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.CopyN(h, file, 64*1024); err != nil && err != io.EOF {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// estimateDurationMs has no real decoder to call, so it guesses a
// duration from file size assuming a ~128kbps MP3 bitrate - a rough
// placeholder, never presented as measured.
func estimateDurationMs(fileSizeBytes int64) int64 {
	const bytesPerSecond = 128_000 / 8
	seconds := float64(fileSizeBytes) / bytesPerSecond
	if seconds < 1 {
		seconds = 180 // 3 minutes, matching the teacher's fixed placeholder
	}
	return int64(seconds * 1000)
}
