// Package capture attaches encoded depth files to captured photos. Frames are encoded one at
// a time on a single processing queue per session.
package capture

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/depthkit/config"
	"go.viam.com/depthkit/logging"
	"go.viam.com/depthkit/rimage"
	"go.viam.com/depthkit/utils"
)

// ErrSessionClosed is returned by Capture once the session has been closed.
var ErrSessionClosed = errors.New("capture session is closed")

// PhotoRequest is a photo that has been written by the camera, together with the depth frame
// delivered alongside it. Depth is nil when the camera produced no depth.
type PhotoRequest struct {
	PhotoPath   string
	Depth       *rimage.RawDepthFrame
	Orientation rimage.Orientation
}

// Result is what a capture resolves to. DepthPath and DepthDims are only set when depth was
// written, and DepthPath uses the same form (path or file URI) as Path.
type Result struct {
	Path        string             `json:"path"`
	DepthPath   string             `json:"depthPath,omitempty"`
	DepthDims   *rimage.Dimensions `json:"depthDims,omitempty"`
	Orientation string             `json:"orientation"`
	IsMirrored  bool               `json:"isMirrored"`
}

type captureRequest struct {
	ctx   context.Context
	photo PhotoRequest
	reply chan captureReply
}

type captureReply struct {
	result Result
	err    error
}

type depthWriter func(
	ctx context.Context,
	path string,
	raw rimage.RawDepthFrame,
	o rimage.Orientation,
	logger logging.Logger,
) (rimage.DepthFile, error)

// A Session owns the processing queue of one camera.
type Session struct {
	depthDir   string
	logger     logging.Logger
	writeDepth depthWriter

	requests chan captureRequest
	workers  utils.StoppableWorkers
	closed   *atomic.Bool
	captured *atomic.Int64
}

// NewSession starts the processing queue. Depth files without a photo to sit next to go to
// conf.DepthDir.
func NewSession(conf *config.Config, logger logging.Logger) *Session {
	if conf == nil {
		conf = config.DefaultConfig()
	}
	s := &Session{
		depthDir:   conf.DepthDir,
		logger:     logger,
		writeDepth: rimage.WriteDepthFile,
		requests:   make(chan captureRequest),
		closed:     atomic.NewBool(false),
		captured:   atomic.NewInt64(0),
	}
	s.workers = utils.NewStoppableWorkers(s.processQueue)
	return s
}

// Capture queues photo and blocks until its depth has been written, or writing failed.
// Capture errors carry a *rimage.CaptureError and are never retried. A frame that panics the
// encoder fails with a BufferAccessError and leaves the session usable.
func (s *Session) Capture(ctx context.Context, photo PhotoRequest) (Result, error) {
	if s.closed.Load() {
		return Result{}, ErrSessionClosed
	}
	req := captureRequest{ctx: ctx, photo: photo, reply: make(chan captureReply, 1)}
	select {
	case s.requests <- req:
	case <-s.workers.Context().Done():
		return Result{}, ErrSessionClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case reply := <-req.reply:
		return reply.result, reply.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Captured is the number of photos processed so far, successful or not.
func (s *Session) Captured() int64 {
	return s.captured.Load()
}

// Close stops taking frames and waits for the frame in flight, if any, to be written. Only the
// caller of Capture can cancel a frame once it is being processed.
func (s *Session) Close(ctx context.Context) error {
	s.closed.Store(true)
	s.workers.Stop()
	return nil
}

func (s *Session) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.requests:
			result, err := s.process(req)
			s.captured.Inc()
			req.reply <- captureReply{result: result, err: err}
		}
	}
}

func (s *Session) process(req captureRequest) (result Result, err error) {
	ctx := req.ctx
	photo := req.photo
	defer func() {
		if thePanic := recover(); thePanic != nil {
			s.logger.Errorw("panic encoding depth", "photo", photo.PhotoPath, "panic", thePanic)
			result = Result{}
			err = &rimage.CaptureError{
				Kind: rimage.BufferAccessError,
				Err:  errors.Errorf("panic encoding depth for %q: %v", photo.PhotoPath, thePanic),
			}
		}
	}()

	result = Result{
		Path:        photo.PhotoPath,
		Orientation: OrientationName(photo.Orientation),
		IsMirrored:  photo.Orientation.IsMirrored(),
	}
	if photo.Depth == nil {
		return result, nil
	}

	localPath, depthPath, err := s.depthPathFor(photo.PhotoPath)
	if err != nil {
		return Result{}, &rimage.CaptureError{Kind: rimage.CaptureIOError, Err: err}
	}
	df, err := s.writeDepth(ctx, localPath, *photo.Depth, photo.Orientation, s.logger)
	if err != nil {
		s.logger.CDebugw(ctx, "depth capture failed", "photo", photo.PhotoPath, "error", err)
		return Result{}, errors.Wrapf(err, "cannot attach depth to %q", photo.PhotoPath)
	}

	dims := df.Dimensions()
	result.DepthPath = depthPath
	result.DepthDims = &dims
	s.logger.CDebugw(ctx, "depth attached", "photo", photo.PhotoPath, "depth", depthPath,
		"width", dims.Width, "height", dims.Height)
	return result, nil
}

// depthPathFor returns where to write the depth file and how to report it. The depth file
// sits next to the photo with its extension replaced, or gets a random name in depthDir.
func (s *Session) depthPathFor(photoPath string) (string, string, error) {
	if photoPath != "" {
		local, err := utils.LocalPath(photoPath)
		if err != nil {
			return "", "", err
		}
		return utils.ReplaceExt(local, utils.DepthFileExt), utils.ReplaceExt(photoPath, utils.DepthFileExt), nil
	}

	if err := os.MkdirAll(s.depthDir, 0o750); err != nil {
		return "", "", errors.Wrapf(err, "cannot create depth directory %q", s.depthDir)
	}
	path, err := utils.SafeJoinDir(s.depthDir, uuid.NewString()+"."+utils.DepthFileExt)
	if err != nil {
		return "", "", err
	}
	return path, path, nil
}
