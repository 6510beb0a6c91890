package collector

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/zombar/collector/models"
)

// ImageMeta inspects raw image bytes and returns dimensions plus whatever
// EXIF metadata the file carries. Metadata is best-effort enrichment, not a
// gate: undecodable data yields a source record with only the filename and
// size filled in.
func ImageMeta(data []byte, filename string) *models.ImageSource {
	src := &models.ImageSource{
		Filename:  filename,
		SizeBytes: int64(len(data)),
	}

	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		src.Width = cfg.Width
		src.Height = cfg.Height
		src.Format = format
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return src
	}

	meta := models.EXIFData{}
	if tag, err := x.Get(exif.DateTime); err == nil {
		meta.DateTime, _ = tag.StringVal()
	}
	if tag, err := x.Get(exif.DateTimeOriginal); err == nil {
		meta.DateTimeOriginal, _ = tag.StringVal()
	}
	if tag, err := x.Get(exif.Make); err == nil {
		meta.Make, _ = tag.StringVal()
	}
	if tag, err := x.Get(exif.Model); err == nil {
		meta.Model, _ = tag.StringVal()
	}
	if lat, long, err := x.LatLong(); err == nil {
		meta.GPS = &models.GPSData{Latitude: lat, Longitude: long}
	}
	if meta != (models.EXIFData{}) {
		src.EXIF = &meta
	}
	return src
}
