package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/pavitra93/go-coliving-admin/shared/apperr"
)

// MaxImageSize is the largest profile image accepted
const MaxImageSize = 5 << 20

var (
	ErrNotImage      = fmt.Errorf("%w: only image files are allowed", apperr.ErrValidation)
	ErrImageTooLarge = fmt.Errorf("%w: image must be at most 5MB", apperr.ErrValidation)
)

// Store persists profile images and hands back an opaque reference
type Store interface {
	Put(ctx context.Context, blob []byte) (string, error)
	Delete(ctx context.Context, ref string) error
}

// ValidateImage checks size and sniffed content type, returning the
// detected MIME type and its file extension
func ValidateImage(blob []byte) (*mimetype.MIME, error) {
	if len(blob) == 0 {
		return nil, ErrNotImage
	}
	if len(blob) > MaxImageSize {
		return nil, ErrImageTooLarge
	}
	mt := mimetype.Detect(blob)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, ErrNotImage
	}
	return mt, nil
}

// ReadLimited reads at most MaxImageSize+1 bytes so oversize uploads are
// caught without buffering them whole
func ReadLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, MaxImageSize+1))
}

func objectName(ext string, now time.Time) string {
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString(), ext)
}

// DiskStore keeps images in a local uploads directory
type DiskStore struct {
	dir string
}

// NewDiskStore creates dir if needed
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (d *DiskStore) Put(_ context.Context, blob []byte) (string, error) {
	mt, err := ValidateImage(blob)
	if err != nil {
		return "", err
	}
	name := objectName(mt.Extension(), time.Now())
	if err := os.WriteFile(filepath.Join(d.dir, name), blob, 0o644); err != nil {
		return "", apperr.Storage("write profile image", err)
	}
	return name, nil
}

func (d *DiskStore) Delete(_ context.Context, ref string) error {
	// references are bare file names
	name := filepath.Base(ref)
	if name != ref || name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid asset reference %q", ref)
	}
	err := os.Remove(filepath.Join(d.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperr.Storage("delete profile image", err)
	}
	return nil
}

// Path returns the file path of ref for serving
func (d *DiskStore) Path(ref string) string {
	return filepath.Join(d.dir, filepath.Base(ref))
}
