package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/qrledger/qrledger/server/internal/metrics"
	"github.com/qrledger/qrledger/server/internal/qr"
	"github.com/qrledger/qrledger/server/internal/store"
)

// ErrEncode indicates the QR image could not be rendered or saved.
var ErrEncode = errors.New("generate: QR encoding failed")

// Recorder is the part of the record store the service writes to.
type Recorder interface {
	Upsert(ctx context.Context, rec store.Record) error
}

// Observer receives one outcome per Generate call.
type Observer interface {
	ObserveGenerate(result string)
	ObserveUpsert()
}

// Result describes a successful generation.
type Result struct {
	Record store.Record
	// ImagePath is where the PNG was written.
	ImagePath string
}

// Service generates QR images and records them.
type Service struct {
	store    Recorder
	encoder  qr.Encoder
	imageDir string
	obs      Observer
}

// New returns a Service writing images to imageDir. obs may be nil.
func New(st Recorder, enc qr.Encoder, imageDir string, obs Observer) *Service {
	return &Service{store: st, encoder: enc, imageDir: imageDir, obs: obs}
}

// ImageDir returns the directory images are written to.
func (s *Service) ImageDir() string { return s.imageDir }

// Generate renders rawURL as a QR image named after name and upserts the
// record. Errors match store.ErrValidation, store.ErrIO, store.ErrParse or
// ErrEncode.
func (s *Service) Generate(ctx context.Context, name, rawURL string) (Result, error) {
	res, err := s.generate(ctx, name, rawURL)
	s.observe(err)
	if err != nil {
		slog.Warn("generate: failed", "name", name, "err", err)
		return Result{}, err
	}
	slog.Info("generate: QR code created",
		"name", res.Record.Key, "url", res.Record.URL, "artifact", res.Record.Artifact)
	return res, nil
}

func (s *Service) generate(ctx context.Context, name, rawURL string) (Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{}, fmt.Errorf("%w: site name is required", store.ErrValidation)
	}
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return Result{}, err
	}

	rec := store.Record{Key: name, URL: target, Artifact: ArtifactName(name)}
	if err := rec.Validate(); err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(s.imageDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("%w: create image directory: %w", store.ErrIO, err)
	}
	imagePath := filepath.Join(s.imageDir, rec.Artifact)
	if err := s.encoder.Encode(ctx, rec.URL, imagePath); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	if err := s.store.Upsert(ctx, rec); err != nil {
		return Result{}, err
	}
	if s.obs != nil {
		s.obs.ObserveUpsert()
	}
	return Result{Record: rec, ImagePath: imagePath}, nil
}

func (s *Service) observe(err error) {
	if s.obs == nil {
		return
	}
	s.obs.ObserveGenerate(Outcome(err))
}

// Outcome maps a Generate error to its metrics result label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, store.ErrValidation):
		return metrics.ResultValidation
	case errors.Is(err, store.ErrParse):
		return metrics.ResultParse
	case errors.Is(err, ErrEncode):
		return metrics.ResultEncode
	default:
		return metrics.ResultIO
	}
}

// NormalizeURL trims raw and prefixes https:// when it carries neither the
// http:// nor the https:// scheme. The result must have a host.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url is required", store.ErrValidation)
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: url %q: %w", store.ErrValidation, raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: url %q has no host", store.ErrValidation, raw)
	}
	return raw, nil
}

// ArtifactName returns the image file name for a site name. Characters that
// are unsafe in file names, and '%' itself, are percent-encoded so distinct
// names never share an image.
func ArtifactName(name string) string {
	var b strings.Builder
	b.WriteString("qr_")
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x20 || c == 0x7f || strings.IndexByte(`/\:*?"<>|%`, c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	b.WriteString(".png")
	return b.String()
}
