// Package archive turns raw uploaded bytes into named source buffers.
// It detects the container type (zip, gzip, plain text) and yields one
// buffer per logical source file.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/log-inspector/backend/internal/models"
)

var (
	// ErrUnsupportedContainer means the input is neither a valid archive
	// nor decodable text. Aborts that load only.
	ErrUnsupportedContainer = errors.New("input is neither a supported archive nor decodable text")

	// ErrArchiveTooLarge means decompressing the input would exceed the
	// configured cap. Aborts that load only.
	ErrArchiveTooLarge = errors.New("archive exceeds maximum decompressed size")
)

var (
	zipSignature      = []byte{'P', 'K', 0x03, 0x04}
	zipEmptySignature = []byte{'P', 'K', 0x05, 0x06}
	gzipSignature     = []byte{0x1f, 0x8b}
)

// Entry is one named source buffer produced by Load.
type Entry struct {
	Name string
	Data []byte
}

// Load detects the container type of data and returns its entries.
// For a zip archive, entries come back in stored order with directory
// entries skipped; entries using unsupported compression methods are
// skipped with a warning. For gzip input the single decompressed file is
// returned. Plain text input yields one entry named after the original
// file. maxTotal caps the total decompressed size.
func Load(name string, data []byte, maxTotal int64) ([]Entry, []models.LoadWarning, error) {
	switch {
	case bytes.HasPrefix(data, zipSignature) || bytes.HasPrefix(data, zipEmptySignature):
		return loadZip(data, maxTotal)
	case bytes.HasPrefix(data, gzipSignature):
		return loadGzip(name, data, maxTotal)
	default:
		return loadPlain(name, data)
	}
}

func loadZip(data []byte, maxTotal int64) ([]Entry, []models.LoadWarning, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedContainer, err)
	}

	var (
		entries  []Entry
		warnings []models.LoadWarning
		total    int64
	)

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		if f.Method != zip.Deflate && f.Method != zip.Store {
			warnings = append(warnings, models.LoadWarning{
				Source: f.Name,
				Reason: fmt.Sprintf("unsupported compression method %d, entry skipped", f.Method),
			})
			continue
		}

		// Declared sizes can lie (zip bombs), so the cap is enforced on
		// the actual decompressed byte count as well.
		if total+int64(f.UncompressedSize64) > maxTotal {
			return nil, nil, ErrArchiveTooLarge
		}

		buf, err := readEntry(f, maxTotal-total)
		if err != nil {
			if errors.Is(err, ErrArchiveTooLarge) {
				return nil, nil, ErrArchiveTooLarge
			}
			warnings = append(warnings, models.LoadWarning{
				Source: f.Name,
				Reason: fmt.Sprintf("decompression failed: %v", err),
			})
			continue
		}

		total += int64(len(buf))
		entries = append(entries, Entry{Name: f.Name, Data: buf})
	}

	return entries, warnings, nil
}

func readEntry(f *zip.File, budget int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(rc, budget+1))
	if err != nil {
		return nil, err
	}
	if n > budget {
		return nil, ErrArchiveTooLarge
	}
	return buf.Bytes(), nil
}

func loadGzip(name string, data []byte, maxTotal int64) ([]Entry, []models.LoadWarning, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedContainer, err)
	}
	defer zr.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(zr, maxTotal+1))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedContainer, err)
	}
	if n > maxTotal {
		return nil, nil, ErrArchiveTooLarge
	}

	return []Entry{{Name: strings.TrimSuffix(name, ".gz"), Data: buf.Bytes()}}, nil, nil
}

func loadPlain(name string, data []byte) ([]Entry, []models.LoadWarning, error) {
	if looksBinary(data) {
		return nil, nil, ErrUnsupportedContainer
	}
	return []Entry{{Name: name, Data: data}}, nil, nil
}

// looksBinary reports whether data cannot plausibly be text. Latin-1
// decodes any byte sequence, so the only hard rejection is content with
// NUL bytes in its leading window.
func looksBinary(data []byte) bool {
	window := data
	if len(window) > 8192 {
		window = window[:8192]
	}
	return bytes.IndexByte(window, 0) >= 0
}
