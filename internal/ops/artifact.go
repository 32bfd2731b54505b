package ops

import (
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
)

// ArtifactName returns the file name for a capture taken at t.
func ArtifactName(t time.Time) string {
	return fmt.Sprintf("screenshot_%d.png", t.Unix())
}

// writeArtifact encodes img as PNG into dir. The name is derived from t; if
// another capture in the same second already took it, a ULID suffix is
// appended. Nothing is left behind on failure.
func writeArtifact(dir string, t time.Time, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create artifacts dir: %w", err)
	}

	path := filepath.Join(dir, ArtifactName(t))
	f, err := createArtifact(path)
	if stderrors.Is(err, os.ErrExist) {
		id, uerr := generateULID(t)
		if uerr != nil {
			return "", uerr
		}
		path = filepath.Join(dir, fmt.Sprintf("screenshot_%d_%s.png", t.Unix(), id))
		f, err = createArtifact(path)
	}
	if err != nil {
		return "", err
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// generateULID generates a new ULID.
func generateULID(t time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
