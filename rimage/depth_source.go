package rimage

import (
	"context"
	"encoding/base64"
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/depthkit/utils"
)

// DepthSource locates a depth payload: a data: URI, a file:// URI or a plain path.
type DepthSource string

// IsDataURI is true when the payload is carried inline.
func (src DepthSource) IsDataURI() bool {
	return strings.HasPrefix(string(src), "data:")
}

// Storage reads depth payloads by path.
type Storage interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// OSStorage reads from the local filesystem.
type OSStorage struct{}

// ReadFile reads the whole file at path.
func (OSStorage) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	//nolint:gosec
	return os.ReadFile(path)
}

// ReadDepthSource resolves src into raw bytes. Inline data: URIs never touch storage. For
// anything else a nil storage means this host cannot read files and ErrNoData is returned.
func ReadDepthSource(ctx context.Context, storage Storage, src DepthSource) ([]byte, error) {
	if src.IsDataURI() {
		return decodeDataURI(string(src))
	}
	if src == "" {
		return nil, newDecodeError(SourceUnavailable, errors.New("empty depth source"))
	}
	if storage == nil {
		return nil, ErrNoData
	}
	path, err := utils.LocalPath(string(src))
	if err != nil {
		return nil, newDecodeError(SourceUnavailable, err)
	}
	data, err := storage.ReadFile(ctx, path)
	if err != nil {
		return nil, newDecodeError(DecodeIOError, errors.Wrapf(err, "cannot read depth file %q", path))
	}
	return data, nil
}

// decodeDataURI handles "data:[<mediatype>][;base64],<data>".
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, found := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !found {
		return nil, newDecodeError(SourceUnavailable, errors.New("data uri has no payload separator"))
	}
	if strings.HasSuffix(header, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// some writers drop the padding
			var rawErr error
			if data, rawErr = base64.RawStdEncoding.DecodeString(payload); rawErr != nil {
				return nil, newDecodeError(SourceUnavailable, errors.Wrap(err, "invalid base64 in data uri"))
			}
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, newDecodeError(SourceUnavailable, errors.Wrap(err, "invalid escape in data uri"))
	}
	return []byte(data), nil
}

// DataURI wraps raw bytes into a base64 data: URI with the raw depth mime type.
func DataURI(data []byte) DepthSource {
	return DepthSource("data:" + utils.MimeTypeRawDepthF32 + ";base64," + base64.StdEncoding.EncodeToString(data))
}
