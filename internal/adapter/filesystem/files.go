package filesystem

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"tgup/internal/domain"
)

// Sniffer builds File entities and implements domain.MediaSniffer.
// The file kind is decided here, once, at construction.
type Sniffer struct {
	// thumbPath is a caller-supplied thumbnail applied to every upload;
	// it is never owned by the engine.
	thumbPath     string
	forceDocument bool
}

func NewSniffer(thumbPath string, forceDocument bool) *Sniffer {
	return &Sniffer{thumbPath: thumbPath, forceDocument: forceDocument}
}

// NewFile constructs an upload candidate from a local path.
func (s *Sniffer) NewFile(path string) (domain.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.File{}, err
	}
	if info.IsDir() {
		return domain.File{}, fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() == 0 {
		return domain.File{}, fmt.Errorf("%s is empty and cannot be uploaded", path)
	}

	name := filepath.Base(path)
	kind := domain.KindDocument
	if !s.forceDocument && isMediaMIME(mimeOf(name)) {
		kind = domain.KindMedia
	}

	return domain.File{
		Path:      path,
		FileName:  name,
		FileSize:  info.Size(),
		ShortName: strings.TrimSuffix(name, filepath.Ext(name)),
		Kind:      kind,
	}, nil
}

// NewFiles constructs candidates for every path, in order.
func (s *Sniffer) NewFiles(paths []string) ([]domain.File, error) {
	files := make([]domain.File, 0, len(paths))
	for _, path := range paths {
		f, err := s.NewFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Attributes reports the media attributes of a KindMedia file. Duration
// and resolution extraction needs a media probe this client does not
// ship; the MIME type alone drives the server-side handling.
func (s *Sniffer) Attributes(file domain.File) (domain.Attributes, error) {
	attrs := domain.Attributes{FileName: file.FileName}
	if file.Kind == domain.KindMedia {
		attrs.Media = &domain.MediaInfo{MIME: mimeOf(file.FileName)}
	}
	return attrs, nil
}

// Thumbnail returns the caller-supplied thumbnail, if any.
func (s *Sniffer) Thumbnail(domain.File) (*domain.Thumbnail, error) {
	if s.thumbPath == "" {
		return nil, nil
	}
	if _, err := os.Stat(s.thumbPath); err != nil {
		return nil, fmt.Errorf("thumbnail not readable: %w", err)
	}
	return &domain.Thumbnail{Path: s.thumbPath, Generated: false}, nil
}

// mediaTypes covers common media extensions missing from the platform
// MIME table.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".m4a":  "audio/mp4",
	".wav":  "audio/x-wav",
}

func mimeOf(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

func isMediaMIME(t string) bool {
	for _, prefix := range []string{"video/", "audio/", "image/"} {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}
