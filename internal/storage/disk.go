package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/lostfound/backend/internal/domain"
)

// ImagePath is the URL path prefix under which stored photos are served.
const ImagePath = "/images/"

// Disk stores photos as files in a directory and references them by URL.
type Disk struct {
	dir     string
	baseURL string
	now     func() time.Time
}

// NewDisk creates dir if needed. baseURL is the public origin of the API,
// e.g. "http://localhost:8080".
func NewDisk(dir, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage.NewDisk: %w", err)
	}
	return &Disk{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}, nil
}

// Dir returns the directory photos are written to.
func (d *Disk) Dir() string { return d.dir }

// Upload validates the payload, writes it as <unix-millis>_<uuid><ext> and
// returns its public URL.
func (d *Disk) Upload(ctx context.Context, u Upload) (string, error) {
	format, err := Sniff(u.Data)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d_%s%s", d.now().UnixMilli(), uuid.NewString(), formatExt[format])
	if err := writeFile(filepath.Join(d.dir, name), u.Data); err != nil {
		return "", fmt.Errorf("storage.Disk.Upload: %w: %v", domain.ErrUpload, err)
	}
	return d.baseURL + ImagePath + name, nil
}

// Delete removes the file behind ref. References outside this store are
// ignored, as are files that no longer exist.
func (d *Disk) Delete(_ context.Context, ref string) error {
	name, ok := d.name(ref)
	if !ok {
		return nil
	}
	if err := os.Remove(filepath.Join(d.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage.Disk.Delete: %w", err)
	}
	return nil
}

// name extracts the stored file name from ref.
func (d *Disk) name(ref string) (string, bool) {
	rest, ok := strings.CutPrefix(ref, d.baseURL+ImagePath)
	if !ok || rest == "" || rest != path.Base(rest) || rest == ".." {
		return "", false
	}
	return rest, true
}

// writeFile writes via a temp file and rename so readers never see a partial image.
func writeFile(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
