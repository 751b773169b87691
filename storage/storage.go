// Package storage keeps uploaded images on local disk or in S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"trendzn-restful/apperrors"

	"github.com/google/uuid"
)

// ImageStore persists image bytes and returns a stable public URL.
type ImageStore interface {
	Save(ctx context.Context, img *Image) (*Object, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// Object identifies a stored image.
type Object struct {
	Key string
	URL string
}

// Image is a validated upload ready to be stored.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

var allowedTypes = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// PrepareImage reads an upload, enforces the size limit and checks that both
// the file extension and the sniffed content are an allowed image type. The
// returned image carries a fresh collision-free name.
func PrepareImage(field, filename string, body io.Reader, maxBytes int64) (*Image, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	want, ok := allowedTypes[ext]
	if !ok {
		return nil, apperrors.Validation("Only image files are allowed")
	}

	data, err := io.ReadAll(io.LimitReader(body, maxBytes+1))
	if err != nil {
		return nil, apperrors.Internal("reading upload", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, apperrors.Validation(fmt.Sprintf("File too large (max %d bytes)", maxBytes))
	}
	if len(data) == 0 {
		return nil, apperrors.Validation("Uploaded file is empty")
	}

	sniffed := http.DetectContentType(data)
	if sniffed != want {
		return nil, apperrors.Validation("Only image files are allowed")
	}

	return &Image{
		Name:        ObjectName(field, ext, time.Now()),
		ContentType: want,
		Data:        data,
	}, nil
}

// ObjectName builds "<field>-<unixMillis>-<uuid><ext>".
func ObjectName(field, ext string, now time.Time) string {
	if field == "" {
		field = "image"
	}
	return fmt.Sprintf("%s-%d-%s%s", field, now.UnixMilli(), uuid.NewString(), ext)
}

func (img *Image) Reader() io.Reader {
	return bytes.NewReader(img.Data)
}
