package filesystem

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/disk"
)

// LocalFileSystem implements domain.FileSystem against the OS.
type LocalFileSystem struct{}

func NewLocalFileSystem() *LocalFileSystem {
	return &LocalFileSystem{}
}

func (l *LocalFileSystem) Remove(path string) error {
	return os.Remove(path)
}

// FreeSpace returns the bytes currently free on the filesystem that
// holds dir.
func (l *LocalFileSystem) FreeSpace(dir string) (int64, error) {
	usage, err := disk.Usage(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read disk usage of %s: %w", dir, err)
	}
	return int64(usage.Free), nil
}
