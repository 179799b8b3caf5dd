package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var mimeToExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI and returns the
// bytes and the file extension for the media type.
func decodeDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", errors.New("not a data URI")
	}

	rest := strings.TrimPrefix(uri, "data:")

	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("invalid data URI: missing comma separator")
	}

	if !strings.Contains(meta, ";base64") {
		return nil, "", errors.New("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]

	ext := mimeToExt[mime]
	if ext == "" {
		return nil, "", fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}

	return data, ext, nil
}

// saveImage writes the illustration behind a data URI to path. A path
// without an extension gets the one matching the image type. It returns the
// path written.
func saveImage(path, uri string) (string, error) {
	data, ext, err := decodeDataURI(uri)
	if err != nil {
		return "", err
	}

	if filepath.Ext(path) == "" {
		path += ext
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing illustration: %w", err)
	}

	return path, nil
}
