package checkpoint

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Identity names a physical file independent of its path: a path can be
// reused by a different file across rotation, so offsets are keyed by
// (inode, device major, device minor) instead.
type Identity struct {
	Inode    uint64
	DevMajor uint32
	DevMinor uint32
}

func (id Identity) String() string {
	return fmt.Sprintf("%d %d %d", id.Inode, id.DevMajor, id.DevMinor)
}

// IdentityOf extracts the identity from a stat result.
func IdentityOf(info os.FileInfo) (Identity, error) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return Identity{}, fmt.Errorf("no raw stat data for %s", info.Name())
	}

	dev := uint64(st.Dev)
	return Identity{
		Inode:    st.Ino,
		DevMajor: unix.Major(dev),
		DevMinor: unix.Minor(dev),
	}, nil
}
