package fsops

import (
	"os"
	"path/filepath"

	"github.com/matzehuels/stacklink/pkg/errors"
)

// Linker realizes one placement: make src's files visible at dst.
type Linker interface {
	Link(src, dst string) error
}

// SymlinkLinker creates dst as a symbolic link to src.
type SymlinkLinker struct {
	fs FS
}

// NewSymlinkLinker creates a SymlinkLinker on fs (RealFS if nil).
func NewSymlinkLinker(fs FS) *SymlinkLinker {
	if fs == nil {
		fs = NewRealFS()
	}
	return &SymlinkLinker{fs: fs}
}

// Link creates the missing ancestors of dst, then a symlink at dst pointing
// to src.
//
// It fails with LINK_FAILED when src does not exist, or when dst already
// exists and is anything other than a symlink to src. A symlink to src that
// is already in place is left alone, so re-running an install is safe.
func (l *SymlinkLinker) Link(src, dst string) error {
	if _, err := l.fs.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeLinkFailed, err, "source %s does not exist", src)
		}
		return errors.Wrap(errors.ErrCodeLinkFailed, err, "stat source %s", src)
	}

	if err := l.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeLinkFailed, err, "create parent of %s", dst)
	}

	exists, err := l.fs.Exists(dst)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLinkFailed, err, "check destination %s", dst)
	}
	if exists {
		if l.isLinkTo(dst, src) {
			return nil
		}
		return errors.New(errors.ErrCodeLinkFailed, "destination %s already exists", dst)
	}

	if err := l.fs.Symlink(src, dst); err != nil {
		return errors.Wrap(errors.ErrCodeLinkFailed, err, "symlink %s -> %s", dst, src)
	}
	return nil
}

func (l *SymlinkLinker) isLinkTo(dst, src string) bool {
	info, err := l.fs.Lstat(dst)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return false
	}
	target, err := l.fs.Readlink(dst)
	if err != nil {
		return false
	}
	return filepath.Clean(target) == filepath.Clean(src)
}

// Ensure SymlinkLinker implements Linker.
var _ Linker = (*SymlinkLinker)(nil)
