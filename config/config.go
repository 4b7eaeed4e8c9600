// Package config defines the settings of the depth capture and viewing pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/depthkit/logging"
	"go.viam.com/depthkit/rimage"
)

// Config is the full configuration. Unset optional fields are filled by ApplyDefaults.
type Config struct {
	// Where depth files go when the capture has no photo path to sit next to.
	DepthDir string `json:"depth_dir,omitempty"`

	LowerBoundPercentile *float64 `json:"lower_bound_percentile,omitempty" jsonschema:"minimum=0,maximum=1"`
	UpperBoundPercentile *float64 `json:"upper_bound_percentile,omitempty" jsonschema:"minimum=0,maximum=1"`
	ColorMap             string   `json:"colormap,omitempty" jsonschema:"enum=jet,enum=hue"`
	Duplication          string   `json:"duplication,omitempty" jsonschema:"enum=top_half,enum=reject"`

	PreviewWidth  int `json:"preview_width,omitempty" jsonschema:"minimum=0"`
	PreviewHeight int `json:"preview_height,omitempty" jsonschema:"minimum=0"`

	LogLevel string `json:"log_level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`

	ConfigFilePath string `json:"-"`
}

// DefaultConfig returns a valid config with every default applied.
func DefaultConfig() *Config {
	conf := &Config{}
	conf.ApplyDefaults()
	return conf
}

// ApplyDefaults fills in every unset field.
func (c *Config) ApplyDefaults() {
	if c.DepthDir == "" {
		c.DepthDir = filepath.Join(os.TempDir(), "depth")
	}
	if c.LowerBoundPercentile == nil {
		lower := rimage.DefaultLowerBoundPercentile
		c.LowerBoundPercentile = &lower
	}
	if c.UpperBoundPercentile == nil {
		upper := rimage.DefaultUpperBoundPercentile
		c.UpperBoundPercentile = &upper
	}
	if c.ColorMap == "" {
		c.ColorMap = rimage.JetColorMap.Name
	}
	if c.Duplication == "" {
		c.Duplication = rimage.DuplicationUseTopHalf.String()
	}
	if c.PreviewWidth == 0 {
		c.PreviewWidth = rimage.DefaultPreviewWidth
	}
	if c.PreviewHeight == 0 {
		c.PreviewHeight = rimage.DefaultPreviewHeight
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	for _, bound := range []struct {
		field string
		value *float64
	}{
		{"lower_bound_percentile", c.LowerBoundPercentile},
		{"upper_bound_percentile", c.UpperBoundPercentile},
	} {
		if bound.value == nil {
			continue
		}
		if !(*bound.value >= 0 && *bound.value <= 1) {
			return utils.NewConfigValidationError(path,
				errors.Errorf("%s must be between 0 and 1, got %v", bound.field, *bound.value))
		}
	}
	if c.LowerBoundPercentile != nil && c.UpperBoundPercentile != nil &&
		*c.LowerBoundPercentile > *c.UpperBoundPercentile {
		return utils.NewConfigValidationError(path, errors.New("lower_bound_percentile is above upper_bound_percentile"))
	}
	if _, err := rimage.ColorMapByName(c.ColorMap); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if _, err := rimage.ParseDuplicationPolicy(c.Duplication); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if c.PreviewWidth < 0 || c.PreviewHeight < 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("preview size %dx%d cannot be negative", c.PreviewWidth, c.PreviewHeight))
	}
	if c.LogLevel != "" {
		if _, err := logging.LevelFromString(c.LogLevel); err != nil {
			return utils.NewConfigValidationError(fmt.Sprintf("%s.log_level", path), err)
		}
	}
	return nil
}

// RenderOptions converts the config into the options of the depth renderer.
func (c *Config) RenderOptions() (rimage.RenderOptions, error) {
	opts := rimage.DefaultRenderOptions()
	if c.LowerBoundPercentile != nil {
		opts.LowerBoundPercentile = *c.LowerBoundPercentile
	}
	if c.UpperBoundPercentile != nil {
		opts.UpperBoundPercentile = *c.UpperBoundPercentile
	}
	cmap, err := rimage.ColorMapByName(c.ColorMap)
	if err != nil {
		return opts, err
	}
	opts.ColorMap = cmap
	if opts.Policy, err = rimage.ParseDuplicationPolicy(c.Duplication); err != nil {
		return opts, err
	}
	return opts, nil
}

// Level returns the configured log level, info when unset.
func (c *Config) Level() logging.Level {
	level, err := logging.LevelFromString(c.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

// FromAttributes builds a config out of a loosely typed attribute map, such as one nested in
// another application's configuration.
func FromAttributes(attrs map[string]interface{}) (*Config, error) {
	var conf Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &conf})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attrs); err != nil {
		return nil, errors.Wrap(err, "failed to decode config attributes")
	}
	if err := conf.Validate("attributes"); err != nil {
		return nil, err
	}
	conf.ApplyDefaults()
	return &conf, nil
}

// Schema returns the JSON schema of Config.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
