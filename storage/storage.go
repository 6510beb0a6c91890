// Package storage archives raw captures as objects, either on the local
// filesystem or in an S3-compatible bucket.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// ObjectStore is the blob interface the capture pipeline writes through.
// Save returns the key the object actually landed at, which may differ
// from the requested key when a backend has to avoid a collision.
type ObjectStore interface {
	Save(data []byte, key, contentType string) (string, error)
	Read(key string) ([]byte, error)
	Delete(key string) error
}

// Key builds an object key of the form prefix/YYYY/MM/name+ext.
// Keys always use forward slashes regardless of platform.
func Key(prefix, name, ext string) string {
	now := time.Now()
	return fmt.Sprintf("%s/%04d/%02d/%s%s", prefix, now.Year(), int(now.Month()), name, ext)
}

// ExtensionForContentType returns the file extension for a MIME type.
// Unknown types get ".bin" so every archived object has an extension.
func ExtensionForContentType(contentType string) string {
	// Normalize content type (remove charset, etc.)
	contentType = strings.ToLower(strings.Split(contentType, ";")[0])
	contentType = strings.TrimSpace(contentType)

	switch contentType {
	case "text/plain":
		return ".txt"
	case "text/html":
		return ".html"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	default:
		return ".bin"
	}
}
