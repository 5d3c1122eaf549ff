package rpcsvc

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartomix/twinklr/internal/audioclient"
)

func writeJobFile(t *testing.T, path string) {
	t.Helper()
	job := map[string]any{
		"rig": map[string]any{
			"id": "rig-1",
			"fixtures": []map[string]any{
				{"id": "MH1", "universe": 1, "start_address": 1},
			},
		},
		"templates": []map[string]any{
			{
				"template_id": "basic",
				"steps": []map[string]any{
					{"step_id": "s1", "movement_id": "static_aim", "dimmer_id": "hold", "duration_bars": 4},
				},
			},
		},
		"plan": map[string]any{
			"sections": []map[string]any{
				{
					"name": "verse", "start_bar": 1, "end_bar": 4,
					"template_id": "basic",
					"target":      map[string]any{"kind": "fixture", "fixture_id": "MH1"},
				},
			},
		},
		"song": map[string]any{"media_file": "song.mp3"},
	}
	data, err := json.Marshal(job)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestServiceDescRegistersRenderMethod(t *testing.T) {
	assert.Equal(t, "twinklr.rpcsvc.RenderService", ServiceDesc.ServiceName)
	require.Len(t, ServiceDesc.Methods, 1)
	assert.Equal(t, "Render", ServiceDesc.Methods[0].MethodName)
}

func TestRenderProducesXSQAndComplianceSummary(t *testing.T) {
	dir := t.TempDir()
	jobPath := filepath.Join(dir, "job.json")
	writeJobFile(t, jobPath)

	audioPath := filepath.Join(dir, "song.mp3")
	require.NoError(t, os.WriteFile(audioPath, make([]byte, 2_000_000), 0644))

	outPath := filepath.Join(dir, "out.xsq")

	svc := NewService(nil, audioclient.NewCPUFallback(nil), nil)
	resp, err := svc.Render(context.Background(), &RenderRequest{
		JobPath: jobPath, AudioPath: audioPath, OutPath: outPath,
	})
	require.NoError(t, err)

	assert.Equal(t, outPath, resp.XSQPath)
	assert.Greater(t, resp.SegmentCount, 0)
	assert.True(t, resp.UsedCPUFallback)
	assert.False(t, resp.OverallCompliant) // CPU fallback grid confidence is 0, below MinGridConfidence

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "xsequence")
}

func TestRenderErrorsOnMissingJobFile(t *testing.T) {
	svc := NewService(nil, audioclient.NewCPUFallback(nil), nil)
	_, err := svc.Render(context.Background(), &RenderRequest{
		JobPath: filepath.Join(t.TempDir(), "missing.json"), AudioPath: "song.mp3", OutPath: "out.xsq",
	})
	require.Error(t, err)
}
