// Package storage stores uploaded images on S3 or on local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"snapbuzz/pkg/config"
	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/s3"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedImage = errors.New("only jpg, jpeg, png and gif images are allowed")
	ErrFileTooLarge     = errors.New("file is too large")
)

type Storage interface {
	// UploadFile returns the stored location: an absolute URL or a path
	// relative to the service root.
	UploadFile(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	DeleteFile(ctx context.Context, location string) error
}

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

func New(cfg *config.Config, log *logger.Logger) (Storage, error) {
	switch cfg.StorageDriver {
	case "local":
		return NewLocal(cfg.UploadDir)
	case "s3", "":
		client, err := s3.NewClient(cfg, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// ImageKey builds prefix/userID/<uuid><ext> for an allowed image filename.
func ImageKey(prefix, userID, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := imageTypes[ext]; !ok {
		return "", ErrUnsupportedImage
	}
	return fmt.Sprintf("%s/%s/%s%s", prefix, userID, uuid.New().String(), ext), nil
}

func ContentType(filename string) string {
	if ct, ok := imageTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Upload validates an uploaded image and stores it under prefix/userID.
func Upload(ctx context.Context, s Storage, fh *multipart.FileHeader, maxSize int64, prefix, userID string) (string, error) {
	if maxSize > 0 && fh.Size > maxSize {
		return "", ErrFileTooLarge
	}
	key, err := ImageKey(prefix, userID, fh.Filename)
	if err != nil {
		return "", err
	}

	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	return s.UploadFile(ctx, key, file, ContentType(fh.Filename))
}

// PublicURL makes a stored location absolute against scheme://host.
func PublicURL(scheme, host, location string) string {
	if location == "" || strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return location
	}
	return fmt.Sprintf("%s://%s/%s", scheme, host, strings.TrimPrefix(location, "/"))
}

// RequestScheme reports the scheme the client used, honouring a proxy's
// X-Forwarded-Proto header.
func RequestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
