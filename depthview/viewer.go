// Package depthview loads depth files in the background and hands the rendered false colour
// images to a display. Only the result of the latest request is ever delivered.
package depthview

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/depthkit/config"
	"go.viam.com/depthkit/logging"
	"go.viam.com/depthkit/rimage"
	"go.viam.com/depthkit/utils"
)

// Messages shown in place of a depth image.
const (
	NoDataMessage       = "Failed to decode depth data."
	RenderFailedMessage = "Failed to render depth image."
)

// ErrNothingToExport is returned by Export before any image has been delivered.
var ErrNothingToExport = errors.New("no depth image to export")

// State is what the display shows. At most one of Image, NoData and Err is set; all unset
// means nothing is shown.
type State struct {
	Generation uint64
	Image      *image.RGBA
	Preview    *image.NRGBA
	NoData     bool
	Err        string
}

// A Listener receives the result of the latest request.
type Listener interface {
	OnDepthResult(State)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(State)

// OnDepthResult calls f.
func (f ListenerFunc) OnDepthResult(s State) {
	f(s)
}

// A Viewer decodes and renders depth files off the caller's goroutine. Every Show or Hide
// starts a new generation; work from older generations still runs to completion but its
// result is dropped. The listener is called with the viewer locked and must not call back
// into it.
type Viewer struct {
	decoder  *rimage.DepthDecoder
	opts     rimage.RenderOptions
	previewW int
	previewH int
	listener Listener
	logger   logging.Logger

	mu         sync.Mutex
	generation *atomic.Uint64
	last       State
	workers    utils.StoppableWorkers
}

// NewViewer returns a viewer reading depth files through storage. A nil storage makes every
// file source report no data.
func NewViewer(conf *config.Config, storage rimage.Storage, listener Listener, logger logging.Logger) (*Viewer, error) {
	if conf == nil {
		conf = config.DefaultConfig()
	}
	if err := conf.Validate("depthview"); err != nil {
		return nil, err
	}
	opts, err := conf.RenderOptions()
	if err != nil {
		return nil, err
	}
	previewW, previewH := conf.PreviewWidth, conf.PreviewHeight
	if previewW == 0 || previewH == 0 {
		previewW, previewH = rimage.DefaultPreviewWidth, rimage.DefaultPreviewHeight
	}
	return &Viewer{
		decoder:    rimage.NewDepthDecoder(storage, opts.Policy, logger),
		opts:       opts,
		previewW:   previewW,
		previewH:   previewH,
		listener:   listener,
		logger:     logger,
		generation: atomic.NewUint64(0),
		workers:    utils.NewStoppableWorkers(),
	}, nil
}

// Show starts loading df and returns the generation of the request. ctx only provides values
// such as debug mode; the load outlives it and can only be superseded or closed.
func (v *Viewer) Show(ctx context.Context, df rimage.DepthFile) uint64 {
	v.mu.Lock()
	gen := v.generation.Inc()
	v.mu.Unlock()

	valueCtx := context.WithoutCancel(ctx)
	v.workers.AddWorkers(func(workerCtx context.Context) {
		loadCtx, cancel := context.WithCancel(valueCtx)
		defer context.AfterFunc(workerCtx, cancel)()
		defer cancel()

		state := v.load(loadCtx, df)
		state.Generation = gen
		v.publish(loadCtx, state)
	})
	return gen
}

// Hide clears the display and drops any load in flight.
func (v *Viewer) Hide() {
	v.mu.Lock()
	defer v.mu.Unlock()
	gen := v.generation.Inc()
	v.last = State{Generation: gen}
	if v.listener != nil {
		v.listener.OnDepthResult(v.last)
	}
}

// Generation is the generation of the newest request.
func (v *Viewer) Generation() uint64 {
	return v.generation.Load()
}

// Current returns the state last delivered to the listener.
func (v *Viewer) Current() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}

// Export writes the currently shown depth image to path, picking the format by extension.
func (v *Viewer) Export(path string) error {
	v.mu.Lock()
	img := v.last.Image
	v.mu.Unlock()
	if img == nil {
		return ErrNothingToExport
	}
	return rimage.WriteImageToFile(path, img)
}

// Close waits for loads in flight. Their results are not delivered.
func (v *Viewer) Close(ctx context.Context) error {
	v.mu.Lock()
	v.generation.Inc()
	v.mu.Unlock()
	v.workers.Stop()
	return nil
}

func (v *Viewer) publish(ctx context.Context, state State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if current := v.generation.Load(); state.Generation != current {
		v.logger.CDebugw(ctx, "dropping stale depth result", "generation", state.Generation, "current", current)
		return
	}
	v.last = state
	if v.listener != nil {
		v.listener.OnDepthResult(state)
	}
}

func (v *Viewer) load(ctx context.Context, df rimage.DepthFile) State {
	if df.Path == "" || df.Width <= 0 || df.Height <= 0 {
		return State{}
	}

	dm, err := v.decoder.Decode(ctx, rimage.DepthSource(df.Path), df.Height, df.Width)
	switch {
	case errors.Is(err, rimage.ErrNoData):
		return State{NoData: true, Err: NoDataMessage}
	case err != nil:
		v.logger.CDebugw(ctx, "cannot decode depth", "path", df.Path, "error", err)
		return State{Err: err.Error()}
	}

	if stats, err := dm.Stats(); err == nil {
		v.logger.CDebugw(ctx, "decoded depth", "path", df.Path, "valid", stats.Count, "missing", stats.Missing,
			"min", stats.Min, "max", stats.Max)
	}

	img, err := rimage.RenderDepthImage(ctx, dm.Data, dm.Rows, dm.Cols, v.opts)
	if err != nil {
		v.logger.CDebugw(ctx, "cannot render depth", "path", df.Path, "error", err)
		return State{Err: RenderFailedMessage}
	}
	return State{Image: img, Preview: rimage.FitPreview(img, v.previewW, v.previewH)}
}
