package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/depthkit/logging"
)

// Read reads a config from the given file. Environment variables in the file are expanded.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	conf := Config{ConfigFilePath: originalPath}
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&conf); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	if err := conf.Validate("depth"); err != nil {
		return nil, err
	}
	conf.ApplyDefaults()
	logger.Debugw("read config", "path", originalPath, "colormap", conf.ColorMap, "duplication", conf.Duplication)
	return &conf, nil
}
