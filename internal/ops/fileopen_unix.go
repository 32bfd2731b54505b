//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/grabtext/internal/errors"
)

// createArtifact creates a new artifact file. O_EXCL fails if the name is
// taken and O_NOFOLLOW refuses a planted symlink. O_CLOEXEC prevents FD
// leaks across exec.
func createArtifact(path string) (*os.File, error) {
	flag := syscall.O_WRONLY | syscall.O_CREAT | syscall.O_EXCL | syscall.O_NOFOLLOW | syscall.O_CLOEXEC
	fd, err := syscall.Open(path, flag, 0o600)
	if err != nil {
		if stderrors.Is(err, syscall.EEXIST) {
			return nil, os.ErrExist
		}
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write to symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

// OpenArtifact opens an artifact for reading with O_NOFOLLOW on the final
// path component.
func OpenArtifact(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot read from symlink")
		}
		if stderrors.Is(err, syscall.ENOENT) {
			return nil, errors.NewNotFound(path)
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
