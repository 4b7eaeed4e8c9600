package depthview

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/depthkit/config"
	"go.viam.com/depthkit/logging"
	"go.viam.com/depthkit/rimage"
)

func depthBytes(values ...float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

// gatedStorage serves files from memory. Reads of a gated path block until the gate is closed.
type gatedStorage struct {
	files map[string][]byte
	gates map[string]chan struct{}
}

func (s *gatedStorage) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if gate, ok := s.gates[path]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	data, ok := s.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func newTestViewer(t *testing.T, storage rimage.Storage) (*Viewer, chan State, logging.Logger) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	results := make(chan State, 16)
	v, err := NewViewer(nil, storage, ListenerFunc(func(s State) { results <- s }), logger)
	test.That(t, err, test.ShouldBeNil)
	return v, results, logger
}

func waitState(t *testing.T, results <-chan State) State {
	t.Helper()
	select {
	case s := <-results:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a depth result")
	}
	return State{}
}

func TestShowRendersDepth(t *testing.T) {
	storage := &gatedStorage{files: map[string][]byte{
		"/photos/a.depth.bin": depthBytes(1, 2, 3, 4, 5, 6),
	}}
	v, results, _ := newTestViewer(t, storage)
	defer v.Close(context.Background())

	gen := v.Show(context.Background(), rimage.DepthFile{Path: "/photos/a.depth.bin", Width: 3, Height: 2})
	s := waitState(t, results)
	test.That(t, s.Generation, test.ShouldEqual, gen)
	test.That(t, s.Err, test.ShouldBeEmpty)
	test.That(t, s.NoData, test.ShouldBeFalse)
	test.That(t, s.Image, test.ShouldNotBeNil)
	test.That(t, s.Image.Bounds().Dx(), test.ShouldEqual, 3)
	test.That(t, s.Image.Bounds().Dy(), test.ShouldEqual, 2)
	test.That(t, s.Preview.Bounds().Dx(), test.ShouldEqual, 300)
	test.That(t, s.Preview.Bounds().Dy(), test.ShouldEqual, 200)
	test.That(t, v.Current().Image, test.ShouldEqual, s.Image)
}

func TestShowDropsStaleResults(t *testing.T) {
	gate := make(chan struct{})
	storage := &gatedStorage{
		files: map[string][]byte{
			"slow.depth.bin": depthBytes(1, 2, 3, 4),
			"fast.depth.bin": depthBytes(4, 3, 2, 1, 0, 1),
		},
		gates: map[string]chan struct{}{"slow.depth.bin": gate},
	}
	logger, observed := logging.NewObservedTestLogger(t)
	results := make(chan State, 16)
	v, err := NewViewer(nil, storage, ListenerFunc(func(s State) { results <- s }), logger)
	test.That(t, err, test.ShouldBeNil)

	slow := v.Show(context.Background(), rimage.DepthFile{Path: "slow.depth.bin", Width: 2, Height: 2})
	fast := v.Show(context.Background(), rimage.DepthFile{Path: "fast.depth.bin", Width: 2, Height: 3})
	test.That(t, fast, test.ShouldBeGreaterThan, slow)

	s := waitState(t, results)
	test.That(t, s.Generation, test.ShouldEqual, fast)
	test.That(t, s.Image.Bounds().Dy(), test.ShouldEqual, 3)

	close(gate)
	test.That(t, v.Close(context.Background()), test.ShouldBeNil)
	test.That(t, len(results), test.ShouldEqual, 0)
	test.That(t, observed.FilterMessage("dropping stale depth result").Len(), test.ShouldEqual, 1)
	test.That(t, v.Current().Generation, test.ShouldEqual, fast)
}

func TestHideDiscardsInFlight(t *testing.T) {
	gate := make(chan struct{})
	storage := &gatedStorage{
		files: map[string][]byte{"a.depth.bin": depthBytes(1, 2)},
		gates: map[string]chan struct{}{"a.depth.bin": gate},
	}
	v, results, _ := newTestViewer(t, storage)

	v.Show(context.Background(), rimage.DepthFile{Path: "a.depth.bin", Width: 2, Height: 1})
	v.Hide()
	hidden := waitState(t, results)
	test.That(t, hidden.Image, test.ShouldBeNil)
	test.That(t, hidden.Err, test.ShouldBeEmpty)
	test.That(t, hidden.Generation, test.ShouldEqual, v.Generation())

	close(gate)
	test.That(t, v.Close(context.Background()), test.ShouldBeNil)
	test.That(t, len(results), test.ShouldEqual, 0)
}

func TestShowFailures(t *testing.T) {
	storage := &gatedStorage{files: map[string][]byte{
		"short.depth.bin": depthBytes(1, 2, 3),
	}}
	v, results, _ := newTestViewer(t, storage)
	defer v.Close(context.Background())
	ctx := context.Background()

	v.Show(ctx, rimage.DepthFile{Path: "short.depth.bin", Width: 2, Height: 2})
	s := waitState(t, results)
	test.That(t, s.Image, test.ShouldBeNil)
	test.That(t, s.Err, test.ShouldContainSubstring, "dimension mismatch")

	v.Show(ctx, rimage.DepthFile{Path: "missing.depth.bin", Width: 2, Height: 2})
	s = waitState(t, results)
	test.That(t, s.Err, test.ShouldContainSubstring, "io")

	v.Show(ctx, rimage.DepthFile{Path: "short.depth.bin", Width: 0, Height: 2})
	s = waitState(t, results)
	test.That(t, s, test.ShouldResemble, State{Generation: v.Generation()})

	err := v.Export(filepath.Join(t.TempDir(), "out.png"))
	test.That(t, errors.Is(err, ErrNothingToExport), test.ShouldBeTrue)
}

func TestShowWithoutStorage(t *testing.T) {
	v, results, _ := newTestViewer(t, nil)
	defer v.Close(context.Background())

	v.Show(context.Background(), rimage.DepthFile{Path: "a.depth.bin", Width: 1, Height: 1})
	s := waitState(t, results)
	test.That(t, s.NoData, test.ShouldBeTrue)
	test.That(t, s.Err, test.ShouldEqual, NoDataMessage)

	// inline sources do not need storage
	v.Show(context.Background(), rimage.DepthFile{Path: string(rimage.DataURI(depthBytes(1, 2))), Width: 2, Height: 1})
	s = waitState(t, results)
	test.That(t, s.Image, test.ShouldNotBeNil)
}

func TestExport(t *testing.T) {
	storage := &gatedStorage{files: map[string][]byte{"a.depth.bin": depthBytes(1, 2, 3, 4)}}
	conf := config.DefaultConfig()
	conf.ColorMap = "hue"
	results := make(chan State, 1)
	v, err := NewViewer(conf, storage, ListenerFunc(func(s State) { results <- s }), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer v.Close(context.Background())

	v.Show(context.Background(), rimage.DepthFile{Path: "a.depth.bin", Width: 2, Height: 2})
	waitState(t, results)

	path := filepath.Join(t.TempDir(), "depth.png")
	test.That(t, v.Export(path), test.ShouldBeNil)
	img, err := rimage.ReadImageFromFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 2)
}

func TestNewViewerRejectsBadConfig(t *testing.T) {
	conf := config.DefaultConfig()
	conf.ColorMap = "viridis"
	_, err := NewViewer(conf, nil, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}
