//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/grabtext/internal/errors"
)

// createArtifact creates a new artifact file, failing if it exists.
// On Windows, O_NOFOLLOW is not available. Symlink creation there needs
// elevated privileges.
func createArtifact(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
}

// OpenArtifact opens an artifact for reading.
func OpenArtifact(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(path)
		}
		return nil, err
	}
	return f, nil
}
