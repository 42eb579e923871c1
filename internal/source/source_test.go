package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/vehicle-counter/internal/domain"
)

const recording = `{
  "classes": ["car", "truck"],
  "frames": [
    {"frame": 0, "objects": [{"id": 7, "class_label": "car", "bbox": {"x1": 80, "y1": 180, "x2": 100, "y2": 200}, "confidence": 0.9}]},
    {"frame": 1, "objects": []},
    {"frame": 2, "objects": [{"id": 7, "class_label": "car", "bbox": {"x1": 100, "y1": 160, "x2": 120, "y2": 180}, "confidence": 0.8}]}
  ]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReplaySource(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "run.json")
	writeFile(t, path, recording)

	s, err := NewReplaySource(path)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	f, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Index)
	require.Len(t, f.Observations, 1)
	assert.Equal(t, domain.TrackedObservation{
		ID:         7,
		ClassLabel: "car",
		BBox:       domain.BBox{X1: 80, Y1: 180, X2: 100, Y2: 200},
		Confidence: 0.9,
	}, f.Observations[0])

	_, err = s.Next(ctx)
	require.NoError(t, err)
	_, err = s.Next(ctx)
	require.NoError(t, err)

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, domain.ErrEndOfStream)

	require.NoError(t, s.Restart(ctx))
	f, err = s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Index)
}

func TestReplaySource_ResolvesClassIndices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	writeFile(t, path, `{
  "classes": ["car", "motorcycle", "truck", "bus"],
  "frames": [
    {"frame": 0, "objects": [
      {"id": 1, "class_label": "2", "bbox": {"x1": 0, "y1": 0, "x2": 10, "y2": 10}, "confidence": 0.9},
      {"id": 2, "class_label": "bus", "bbox": {"x1": 0, "y1": 0, "x2": 10, "y2": 10}, "confidence": 0.9},
      {"id": 3, "class_label": "9", "bbox": {"x1": 0, "y1": 0, "x2": 10, "y2": 10}, "confidence": 0.9}
    ]}
  ]
}`)

	s, err := NewReplaySource(path)
	require.NoError(t, err)

	f, err := s.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, f.Observations, 3)
	assert.Equal(t, "truck", f.Observations[0].ClassLabel)
	assert.Equal(t, "bus", f.Observations[1].ClassLabel)
	assert.Equal(t, "9", f.Observations[2].ClassLabel, "out of range index is left alone")
}

func TestReplaySource_RestartFailsWhenRecordingRemoved(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "run.json")
	writeFile(t, path, recording)

	s, err := NewReplaySource(path)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	assert.Error(t, s.Restart(ctx))
}

func TestReplaySource_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	writeFile(t, path, "{not json")

	_, err := NewReplaySource(path)
	assert.Error(t, err)
}

func TestDirectorySource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "0002.jpg"), "second")
	writeFile(t, filepath.Join(dir, "0001.JPG"), "first")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	s, err := NewDirectorySource(dir)
	require.NoError(t, err)

	f, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Index)
	assert.Equal(t, []byte("first"), f.Image)

	f, err = s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Index)
	assert.Equal(t, []byte("second"), f.Image)

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, domain.ErrEndOfStream)

	require.NoError(t, s.Restart(ctx))
	f, err = s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), f.Image)
}

func TestDirectorySource_Missing(t *testing.T) {
	_, err := NewDirectorySource(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSourcesHonorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "run.json")
	writeFile(t, path, recording)
	s, err := NewReplaySource(path)
	require.NoError(t, err)

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocationFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "current_camera_location.txt")
	f := NewLocationFile(path)

	_, err := f.Read(ctx)
	assert.Error(t, err)

	require.NoError(t, f.EnsureDefault("Basni Crossing"))
	id, err := f.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Basni Crossing", id)

	// Existing content is kept
	require.NoError(t, f.EnsureDefault("Rai ka bagh crossing"))
	id, err = f.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Basni Crossing", id)

	require.NoError(t, f.Write("Rai ka bagh crossing"))
	id, err = f.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rai ka bagh crossing", id)

	writeFile(t, path, "  Bhagat ki kothi crossing\n")
	id, err = f.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bhagat ki kothi crossing", id)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}
