package qr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

// Encoder writes a QR image encoding content to path.
type Encoder interface {
	Encode(ctx context.Context, content, path string) error
}

// PNG encodes QR codes as square PNG images.
type PNG struct {
	// Size is the image edge length in pixels.
	Size int
	// Level is the error correction level.
	Level qrcode.RecoveryLevel
}

// NewPNG returns a PNG encoder for the given size and level name.
func NewPNG(size int, level string) (*PNG, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("qr: size must be positive, got %d", size)
	}
	return &PNG{Size: size, Level: l}, nil
}

// ParseLevel maps low | medium | high | highest to a recovery level.
func ParseLevel(s string) (qrcode.RecoveryLevel, error) {
	switch s {
	case "low":
		return qrcode.Low, nil
	case "medium", "":
		return qrcode.Medium, nil
	case "high":
		return qrcode.High, nil
	case "highest":
		return qrcode.Highest, nil
	}
	return 0, fmt.Errorf("qr: unknown recovery level %q", s)
}

// Encode renders content and writes it to path. The image appears at path
// only once fully written.
func (p *PNG) Encode(ctx context.Context, content, path string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("qr encode: %w", err)
	}

	img, err := qrcode.Encode(content, p.Level, p.Size)
	if err != nil {
		return fmt.Errorf("qr encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".qr-*.png")
	if err != nil {
		return fmt.Errorf("qr encode: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after the rename

	if _, err := tmp.Write(img); err != nil {
		tmp.Close()
		return fmt.Errorf("qr encode: write %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("qr encode: write %q: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("qr encode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("qr encode: %w", err)
	}
	return nil
}
