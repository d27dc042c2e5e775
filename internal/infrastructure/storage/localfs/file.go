package localfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

// OpenFile stats path and returns a FileRef that reopens it on demand. The
// MIME type comes from the extension, falling back to content sniffing.
func OpenFile(path string) (domain.FileRef, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.FileRef{}, domain.WrapError(domain.ErrNotFound, "open file", err)
		}
		return domain.FileRef{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return domain.FileRef{}, domain.WrapError(domain.ErrInvalidInput, "open file", fmt.Errorf("%s is a directory", path))
	}

	mimeType, err := DetectMimeType(path)
	if err != nil {
		return domain.FileRef{}, err
	}
	return domain.NewFileRef(filepath.Base(path), info.Size(), mimeType, func() (io.ReadCloser, error) {
		return os.Open(path)
	}), nil
}

func DetectMimeType(path string) (string, error) {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		mediaType, _, err := mime.ParseMediaType(byExt)
		if err == nil {
			return mediaType, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read file head: %w", err)
	}
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(head[:n]))
	if err != nil {
		return "application/octet-stream", nil
	}
	return mediaType, nil
}
