package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tiendamx/tienda-backend/pkg/cloudinary"
	"github.com/tiendamx/tienda-backend/pkg/config"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
	"github.com/tiendamx/tienda-backend/pkg/logger"
)

// Uploader is the media host surface the service needs.
type Uploader interface {
	UploadImage(ctx context.Context, filename string, content io.Reader) (*cloudinary.UploadResult, error)
}

// Upload describes one incoming file.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Asset is the hosted image handed back to the admin UI.
type Asset struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
	Bytes    int64  `json:"bytes"`
}

// Service validates admin image uploads and forwards them to the media host.
type Service interface {
	UploadImage(ctx context.Context, upload Upload) (*Asset, error)
}

type service struct {
	uploader Uploader
	maxBytes int64
	logg     *logger.Logger
}

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// NewService wires the media service.
func NewService(uploader Uploader, cfg config.MediaConfig, logg *logger.Logger) (Service, error) {
	if uploader == nil {
		return nil, fmt.Errorf("media uploader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxMB := cfg.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 10
	}
	return &service{
		uploader: uploader,
		maxBytes: int64(maxMB) << 20,
		logg:     logg,
	}, nil
}

func (s *service) UploadImage(ctx context.Context, upload Upload) (*Asset, error) {
	if upload.Content == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload file is required")
	}
	if !allowedContentTypes[strings.ToLower(upload.ContentType)] {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unsupported content type %q", upload.ContentType))
	}
	if upload.Size > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file exceeds the %d MB upload limit", s.maxBytes>>20))
	}

	// A lying Content-Length header must not smuggle a bigger body through.
	limited := &limitedReader{reader: io.LimitReader(upload.Content, s.maxBytes+1), max: s.maxBytes}

	result, err := s.uploader.UploadImage(ctx, upload.Filename, limited)
	if err != nil {
		return nil, err
	}
	if limited.exceeded {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file exceeds the %d MB upload limit", s.maxBytes>>20))
	}

	s.logg.Info(s.logg.WithField(ctx, "public_id", result.PublicID), "image uploaded")
	return &Asset{
		URL:      result.SecureURL,
		PublicID: result.PublicID,
		Bytes:    result.Bytes,
	}, nil
}

type limitedReader struct {
	reader   io.Reader
	max      int64
	read     int64
	exceeded bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.reader.Read(p)
	l.read += int64(n)
	if l.read > l.max {
		l.exceeded = true
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}
