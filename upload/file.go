package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// RawFile is a selected file: metadata plus a way to read its bytes.
type RawFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mimeType,omitempty"`
	// Open returns a fresh reader over the content. It may be nil for
	// metadata-only files (e.g. in tests with a fake transport).
	Open func() (io.ReadCloser, error) `json:"-"`
}

// BytesFile wraps in-memory content.
func BytesFile(name, mimeType string, data []byte) RawFile {
	return RawFile{
		Name:     name,
		Size:     int64(len(data)),
		MIMEType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// OSFile stats path and returns a RawFile reading from disk. The MIME type
// is inferred from the extension.
func OSFile(path string) (RawFile, error) {
	st, err := os.Stat(path)
	if err != nil {
		return RawFile{}, err
	}
	if st.IsDir() {
		return RawFile{}, fmt.Errorf("upload: %s is a directory", path)
	}
	return RawFile{
		Name:     filepath.Base(path),
		Size:     st.Size(),
		MIMEType: mimeFromName(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func mimeFromName(name string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// Status is the per-file lifecycle state.
type Status int

const (
	Idle Status = iota
	Uploading
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Uploading:
		return "uploading"
	case Success:
		return "success"
	case Error:
		return "error"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// FileInfo is the tracked record of one selected file.
type FileInfo struct {
	ID        string  `json:"id"`
	File      RawFile `json:"file"`
	Status    Status  `json:"status"`
	Progress  int     `json:"progress"`
	RemoteURL string  `json:"remoteUrl,omitempty"`
	Err       string  `json:"error,omitempty"`
}
