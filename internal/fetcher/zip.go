package fetcher

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// UnzipByExtension reads an in-memory ZIP archive and returns the content of
// every member with the given extension, keyed by member name without the
// extension. Directories and other members are skipped.
func UnzipByExtension(data []byte, ext string) (map[string][]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}

	out := make(map[string][]byte)
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ext) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, eris.Wrapf(err, "zip: open entry %s", f.Name)
		}
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "zip: read entry %s", f.Name)
		}

		name := strings.TrimSuffix(f.Name, ext)
		out[name] = content
	}

	return out, nil
}
