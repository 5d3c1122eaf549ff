// Package rpcsvc is the optional gRPC wrapper around the rendering
// pipeline (started with --serve), letting a caller trigger a render
// without the one-shot CLI. Grounded on internal/server/server.go's
// EngineServer (a thin struct wrapping domain collaborators, one method
// per RPC) and cmd/engine/main.go's server wiring (auth interceptors,
// health service, reflection). Since this port has no protoc step, the
// Render RPC is registered by hand via a grpc.ServiceDesc (the same
// extension point protoc-gen-go-grpc targets) instead of a generated
// stub, carrying JSON-tagged messages over internal/audioclient's
// registered "json" gRPC content-subtype.
package rpcsvc

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"

	"github.com/cartomix/twinklr/internal/audioclient"
	"github.com/cartomix/twinklr/internal/compilecache"
	"github.com/cartomix/twinklr/internal/dimmer"
	"github.com/cartomix/twinklr/internal/geometry"
	"github.com/cartomix/twinklr/internal/jobfile"
	"github.com/cartomix/twinklr/internal/movement"
	"github.com/cartomix/twinklr/internal/pipeline"
	"github.com/cartomix/twinklr/internal/report"
	"github.com/cartomix/twinklr/internal/xsq"
)

// Importing internal/audioclient (for the Analyzer dependency) already
// runs its init() registering the "json" gRPC codec (audioclient.
// JSONCodecName); the Render RPC server side rides that same registered
// content-subtype without registering it twice.

// RenderRequest names the job file and audio file for one render.
type RenderRequest struct {
	JobPath   string `json:"job_path"`
	AudioPath string `json:"audio_path"`
	OutPath   string `json:"out_path"` // destination .xsq path
}

// RenderResponse summarizes a completed render; the XSQ itself is
// written to OutPath rather than returned inline.
type RenderResponse struct {
	XSQPath            string   `json:"xsq_path"`
	SegmentCount       int      `json:"segment_count"`
	OverallCompliant   bool     `json:"overall_compliant"`
	Warnings           []string `json:"warnings,omitempty"`
	UsedCPUFallback    bool     `json:"used_cpu_fallback"`
}

// Service implements the Render RPC against the real pipeline.Engine,
// audio collaborator, and compile cache.
type Service struct {
	logger   *slog.Logger
	analyzer audioclient.Analyzer
	cache    *compilecache.DB
	thresholds report.Thresholds
}

// NewService builds a Service. cache may be nil to disable caching.
func NewService(logger *slog.Logger, analyzer audioclient.Analyzer, cache *compilecache.DB) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, analyzer: analyzer, cache: cache, thresholds: report.DefaultThresholds()}
}

// Render loads the job file, resolves it into domain objects, analyzes
// the audio, runs the pipeline, writes the XSQ, and returns a summary -
// the same sequence cmd/twinklr-render's one-shot path runs, reachable
// here over gRPC instead of argv.
func (s *Service) Render(ctx context.Context, req *RenderRequest) (*RenderResponse, error) {
	job, err := jobfile.Load(req.JobPath)
	if err != nil {
		return nil, fmt.Errorf("rpcsvc: %w", err)
	}
	resolved, err := job.Resolve()
	if err != nil {
		return nil, fmt.Errorf("rpcsvc: %w", err)
	}

	analysis, err := s.analyzer.Analyze(ctx, req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("rpcsvc: analyze: %w", err)
	}
	if resolved.Song.MediaFile == "" {
		resolved.Song.MediaFile = req.AudioPath
	}

	engine := pipeline.NewEngine(resolved.Rig, resolved.Templates, movement.NewRegistry(), dimmer.NewRegistry(), geometry.NewEngine(), s.logger)
	engine.Splits = resolved.Splits
	engine.Presets = resolved.Presets

	result, err := engine.Run(resolved.Plan, analysis.Grid, resolved.Song, resolved.MacroPlan, analysis.Profile)
	if err != nil {
		return nil, fmt.Errorf("rpcsvc: render: %w", err)
	}

	if err := xsq.Write(result.Document, req.OutPath); err != nil {
		return nil, fmt.Errorf("rpcsvc: write xsq: %w", err)
	}

	rpt := report.Generate(resolved.Song.MediaFile, result.Segments, analysis.Grid.Confidence, s.thresholds)
	if s.cache != nil {
		key := compilecache.Key([]byte(req.JobPath+req.AudioPath), req.AudioPath)
		if err := s.cache.Put(key, resolved.Song.MediaFile, result.Document, result.Segments, rpt); err != nil {
			s.logger.Warn("rpcsvc: failed to populate compile cache", "error", err)
		}
	}

	return &RenderResponse{
		XSQPath:          req.OutPath,
		SegmentCount:     len(result.Segments),
		OverallCompliant: rpt.OverallCompliant,
		Warnings:         rpt.Warnings,
		UsedCPUFallback:  analysis.Grid.Confidence == 0,
	}, nil
}

// ServiceDesc registers the Render RPC on a *grpc.Server, the hand-written
// equivalent of what protoc-gen-go-grpc would emit.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "twinklr.rpcsvc.RenderService",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Render", Handler: renderHandler},
	},
	Metadata: "rpcsvc",
}

func renderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RenderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Service).Render(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/twinklr.rpcsvc.RenderService/Render"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Service).Render(ctx, req.(*RenderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Register wires svc onto grpcServer under ServiceDesc.
func Register(grpcServer *grpc.Server, svc *Service) {
	grpcServer.RegisterService(&ServiceDesc, svc)
}
