// Package main is a command that encodes sensor depth buffers into depth files and turns depth
// files into false colour images.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"go.viam.com/depthkit/capture"
	"go.viam.com/depthkit/config"
	"go.viam.com/depthkit/logging"
	"go.viam.com/depthkit/rimage"
)

const (
	// Flags.
	flagConfig      = "config"
	flagDebug       = "debug"
	flagWidth       = "width"
	flagHeight      = "height"
	flagColorMap    = "colormap"
	flagLower       = "lower"
	flagUpper       = "upper"
	flagPreview     = "preview"
	flagFormat      = "format"
	flagBytesPerRow = "bytes-per-row"
	flagOrientation = "orientation"
	flagPhoto       = "photo"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type depthTool struct {
	out    io.Writer
	conf   *config.Config
	logger logging.Logger
}

func newApp(out io.Writer) *cli.App {
	tool := &depthTool{out: out}
	return &cli.App{
		Name:      "depth",
		Usage:     "encode and visualize depth captures",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: tool.before,
		Commands: []*cli.Command{
			{
				Name:      "render",
				Usage:     "render a depth file as a false colour image",
				ArgsUsage: "<depth in> <image out>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  flagColorMap,
						Usage: "colormap to use (jet or hue)",
					},
					&cli.Float64Flag{
						Name:  flagLower,
						Usage: "percentile mapped to the start of the colormap",
					},
					&cli.Float64Flag{
						Name:  flagUpper,
						Usage: "percentile mapped to the end of the colormap",
					},
					&cli.BoolFlag{
						Name:  flagPreview,
						Usage: "scale the image into the configured preview box",
					},
				}, sizeFlags()...),
				Action: tool.render,
			},
			{
				Name:      "info",
				Usage:     "print statistics of a depth file",
				ArgsUsage: "<depth in>",
				Flags:     sizeFlags(),
				Action:    tool.info,
			},
			{
				Name:      "encode",
				Usage:     "encode a raw sensor depth buffer into a depth file",
				ArgsUsage: "<raw buffer in>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  flagFormat,
						Value: rimage.DepthFloat32.String(),
						Usage: "pixel format of the buffer",
					},
					&cli.IntFlag{
						Name:  flagBytesPerRow,
						Usage: "row stride of the buffer, defaults to width times the sample size",
					},
					&cli.IntFlag{
						Name:  flagOrientation,
						Value: int(rimage.OrientationUp),
						Usage: "EXIF orientation of the photo",
					},
					&cli.StringFlag{
						Name:  flagPhoto,
						Usage: "photo to write the depth file next to",
					},
				}, sizeFlags()...),
				Action: tool.encode,
			},
			{
				Name:  "schema",
				Usage: "print the JSON schema of the configuration file",
				Action: func(c *cli.Context) error {
					return tool.printJSON(config.Schema())
				},
			},
		},
	}
}

func sizeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:     flagWidth,
			Usage:    "width of the depth grid in samples",
			Required: true,
		},
		&cli.IntFlag{
			Name:     flagHeight,
			Usage:    "height of the depth grid in samples",
			Required: true,
		},
	}
}

func (t *depthTool) before(c *cli.Context) error {
	t.logger = logging.NewWriterLogger("depth", logging.INFO, os.Stderr)
	if path := c.String(flagConfig); path != "" {
		conf, err := config.Read(path, t.logger)
		if err != nil {
			return err
		}
		t.conf = conf
	} else {
		t.conf = config.DefaultConfig()
	}
	t.logger.SetLevel(t.conf.Level())
	if c.Bool(flagDebug) {
		t.logger.SetLevel(logging.DEBUG)
	}
	logging.ReplaceGlobal(t.logger)
	return nil
}

func (t *depthTool) context(c *cli.Context) context.Context {
	if c.Bool(flagDebug) {
		return logging.EnableDebugMode(c.Context, "")
	}
	return c.Context
}

func (t *depthTool) decode(c *cli.Context, policy rimage.DuplicationPolicy) (*rimage.DepthMatrix, error) {
	if c.Args().Len() < 1 {
		return nil, errors.New("need a depth file to read")
	}
	decoder := rimage.NewDepthDecoder(rimage.OSStorage{}, policy, t.logger)
	return decoder.Decode(t.context(c), rimage.DepthSource(c.Args().First()), c.Int(flagHeight), c.Int(flagWidth))
}

func (t *depthTool) render(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return errors.New("render needs <depth in> <image out>")
	}
	conf := *t.conf
	if c.IsSet(flagColorMap) {
		conf.ColorMap = c.String(flagColorMap)
	}
	if c.IsSet(flagLower) {
		lower := c.Float64(flagLower)
		conf.LowerBoundPercentile = &lower
	}
	if c.IsSet(flagUpper) {
		upper := c.Float64(flagUpper)
		conf.UpperBoundPercentile = &upper
	}
	if err := conf.Validate("flags"); err != nil {
		return err
	}
	opts, err := conf.RenderOptions()
	if err != nil {
		return err
	}

	dm, err := t.decode(c, opts.Policy)
	if err != nil {
		return err
	}
	img, err := rimage.RenderDepthImage(t.context(c), dm.Data, dm.Rows, dm.Cols, opts)
	if err != nil {
		return err
	}

	out := c.Args().Get(1)
	if c.Bool(flagPreview) {
		if err := rimage.WriteImageToFile(out, rimage.FitPreview(img, conf.PreviewWidth, conf.PreviewHeight)); err != nil {
			return err
		}
	} else if err := rimage.WriteImageToFile(out, img); err != nil {
		return err
	}
	fmt.Fprintln(t.out, out)
	return nil
}

func (t *depthTool) info(c *cli.Context) error {
	policy, err := rimage.ParseDuplicationPolicy(t.conf.Duplication)
	if err != nil {
		return err
	}
	dm, err := t.decode(c, policy)
	if err != nil {
		return err
	}
	stats, err := dm.Stats()
	if err != nil {
		return err
	}

	entries := []lo.Entry[string, interface{}]{
		{Key: "size", Value: fmt.Sprintf("%dx%d", dm.Cols, dm.Rows)},
		{Key: "duplicated", Value: lo.Ternary(dm.Duplicated, "yes", "no")},
		{Key: "valid", Value: stats.Count},
		{Key: "missing", Value: stats.Missing},
	}
	if stats.Count > 0 {
		entries = append(entries,
			lo.Entry[string, interface{}]{Key: "min", Value: stats.Min},
			lo.Entry[string, interface{}]{Key: "max", Value: stats.Max},
			lo.Entry[string, interface{}]{Key: "mean", Value: stats.Mean},
			lo.Entry[string, interface{}]{Key: "median", Value: stats.Median},
			lo.Entry[string, interface{}]{Key: "p10", Value: stats.P10},
			lo.Entry[string, interface{}]{Key: "p90", Value: stats.P90},
		)
	}
	lines := lo.Map(entries, func(e lo.Entry[string, interface{}], _ int) string {
		return fmt.Sprintf("%-11s %v", e.Key+":", e.Value)
	})
	fmt.Fprintln(t.out, strings.Join(lines, "\n"))
	return nil
}

func (t *depthTool) encode(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return errors.New("encode needs <raw buffer in>")
	}
	format, err := rimage.ParsePixelFormat(c.String(flagFormat))
	if err != nil {
		return err
	}
	//nolint:gosec
	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return err
	}

	width := c.Int(flagWidth)
	bytesPerRow := c.Int(flagBytesPerRow)
	if bytesPerRow == 0 {
		bytesPerRow = width * format.BytesPerPixel()
	}
	frame := &rimage.RawDepthFrame{
		Format:      format,
		Width:       width,
		Height:      c.Int(flagHeight),
		BytesPerRow: bytesPerRow,
		Data:        data,
	}

	ctx := t.context(c)
	session := capture.NewSession(t.conf, t.logger)
	defer func() {
		if err := session.Close(ctx); err != nil {
			t.logger.Warnw("cannot close capture session", "error", err)
		}
	}()

	res, err := session.Capture(ctx, capture.PhotoRequest{
		PhotoPath:   c.String(flagPhoto),
		Depth:       frame,
		Orientation: rimage.Orientation(c.Int(flagOrientation)),
	})
	if err != nil {
		return err
	}
	return t.printJSON(res)
}

func (t *depthTool) printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(t.out, string(out))
	return nil
}
