package upload

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"model-library/internal/library"
	"model-library/internal/logging"
	"model-library/internal/metrics"
)

// Sentinel errors for upload handling.
var (
	// ErrEmptyUpload indicates a request body with no payload.
	ErrEmptyUpload = errors.New("empty upload payload")

	// ErrInvalidArchive indicates a payload that is not a readable zip.
	ErrInvalidArchive = errors.New("payload is not a valid zip archive")

	// ErrUnsafeEntry indicates an archive entry that would land outside
	// the destination folder.
	ErrUnsafeEntry = errors.New("archive entry escapes destination folder")

	// ErrFolderExists indicates the destination folder is already taken.
	ErrFolderExists = errors.New("destination folder already exists")
)

// copyBufferSize is the read buffer used while spooling and unpacking.
const copyBufferSize = 64 * 1024

// Receiver spools uploaded archives to disk and unpacks them into new
// folders under the library root. The folder it creates is picked up by the
// next library refresh; Receiver itself never touches the catalog.
type Receiver struct {
	libraryDir string
	cacheDir   string
}

// NewReceiver creates a Receiver writing spool files under cacheDir and
// unpacking into libraryDir.
func NewReceiver(libraryDir string, cacheDir string) *Receiver {
	return &Receiver{
		libraryDir: libraryDir,
		cacheDir:   cacheDir,
	}
}

// Receive streams body to a spool file under the upload cache, then unpacks
// it as a zip archive into a new folder under the library root named after
// name. It returns the created folder's name. The payload is never held in
// memory; the spool file is removed when Receive returns.
func (r *Receiver) Receive(name string, body io.Reader) (string, error) {
	folder, err := r.receive(name, body)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.UploadsTotal.WithLabelValues("success").Inc()
	return folder, nil
}

func (r *Receiver) receive(name string, body io.Reader) (string, error) {
	spool, err := os.CreateTemp(r.cacheDir, "upload-*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create spool file: %w", err)
	}
	spoolPath := spool.Name()
	defer os.Remove(spoolPath)

	buf := make([]byte, copyBufferSize)
	size, err := io.CopyBuffer(spool, body, buf)
	if closeErr := spool.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to spool upload: %w", err)
	}
	if size == 0 {
		return "", ErrEmptyUpload
	}
	metrics.UploadBytesReceived.Add(float64(size))

	folder := folderName(name)
	dest := filepath.Join(r.libraryDir, folder)
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("%w: %s", ErrFolderExists, folder)
	} else if !os.IsNotExist(err) {
		return "", err
	}

	if err := unpack(spoolPath, dest, buf); err != nil {
		// A half-unpacked folder would be catalogued on the next
		// refresh, so clean it up.
		os.RemoveAll(dest)
		return "", err
	}

	logging.Info("Upload of %d bytes unpacked into %s", size, folder)
	return folder, nil
}

// folderName derives a library folder name from an uploaded file name,
// dropping the archive extension.
func folderName(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return library.Slugify(base)
}

// unpack extracts the zip at spoolPath into dest, creating dest. Entries
// that resolve outside dest are rejected before anything is written.
func unpack(spoolPath string, dest string, buf []byte) error {
	zr, err := zip.OpenReader(spoolPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !safeEntry(f.Name) {
			return fmt.Errorf("%w: %s", ErrUnsafeEntry, f.Name)
		}
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create destination folder: %w", err)
	}

	for _, f := range zr.File {
		if err := extractEntry(f, dest, buf); err != nil {
			return err
		}
	}

	return nil
}

// safeEntry reports whether an archive entry name stays inside the
// destination when joined to it.
func safeEntry(name string) bool {
	if name == "" || filepath.IsAbs(name) {
		return false
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	return clean != ".." && !strings.HasPrefix(clean, ".."+string(filepath.Separator))
}

func extractEntry(f *zip.File, dest string, buf []byte) error {
	target := filepath.Join(dest, filepath.FromSlash(f.Name))

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	_, err = io.CopyBuffer(out, src, buf)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return nil
}
