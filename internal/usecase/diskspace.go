package usecase

import "tgup/internal/domain"

// SpaceGuard is the preflight check run before each download. Free
// space is read fresh on every call: earlier downloads in the same
// session consume it.
type SpaceGuard struct {
	fs  domain.FileSystem
	dir string
}

func NewSpaceGuard(fs domain.FileSystem, dir string) *SpaceGuard {
	return &SpaceGuard{fs: fs, dir: dir}
}

// Ensure fails with InsufficientSpaceError when required exceeds the
// bytes currently free on the download target filesystem.
func (g *SpaceGuard) Ensure(name string, required int64) error {
	free, err := g.fs.FreeSpace(g.dir)
	if err != nil {
		return err
	}
	if required > free {
		return &domain.InsufficientSpaceError{Name: name, Required: required, Available: free}
	}
	return nil
}
