package archive

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("writing zip entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

func TestLoadZip(t *testing.T) {
	data := buildZip(t, map[string]string{
		"app.log": "2023-05-01T10:00:00Z INFO hello\n",
		"sys.log": "Sep  7 08:15:00 host daemon: up\n",
	})

	entries, warnings, err := Load("bundle.zip", data, 1<<20)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	byName := map[string]string{}
	for _, e := range entries {
		byName[e.Name] = string(e.Data)
	}
	if byName["app.log"] != "2023-05-01T10:00:00Z INFO hello\n" {
		t.Errorf("app.log content = %q", byName["app.log"])
	}
	if byName["sys.log"] != "Sep  7 08:15:00 host daemon: up\n" {
		t.Errorf("sys.log content = %q", byName["sys.log"])
	}
}

func TestLoadZipSkipsDirectories(t *testing.T) {
	data := buildZip(t, map[string]string{
		"logs/":        "",
		"logs/app.log": "line\n",
	})

	entries, _, err := Load("bundle.zip", data, 1<<20)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "logs/app.log" {
		t.Errorf("entries = %+v, want just logs/app.log", entries)
	}
}

func TestLoadZipEnforcesSizeCap(t *testing.T) {
	big := bytes.Repeat([]byte("log line content here\n"), 1000)
	data := buildZip(t, map[string]string{"big.log": string(big)})

	_, _, err := Load("bundle.zip", data, 100)
	if !errors.Is(err, ErrArchiveTooLarge) {
		t.Errorf("err = %v, want ErrArchiveTooLarge", err)
	}
}

func TestLoadZipCapIsCumulative(t *testing.T) {
	// Each entry fits the cap alone; together they exceed it.
	content := string(bytes.Repeat([]byte("x"), 600))
	data := buildZip(t, map[string]string{
		"a.log": content,
		"b.log": content,
	})

	_, _, err := Load("bundle.zip", data, 1000)
	if !errors.Is(err, ErrArchiveTooLarge) {
		t.Errorf("err = %v, want ErrArchiveTooLarge", err)
	}
}

func TestLoadGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte("2023-05-01T10:00:00Z INFO hello\n"))
	zw.Close()

	entries, warnings, err := Load("app.log.gz", buf.Bytes(), 1<<20)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Name != "app.log" {
		t.Errorf("name = %q, want app.log", entries[0].Name)
	}
	if string(entries[0].Data) != "2023-05-01T10:00:00Z INFO hello\n" {
		t.Errorf("content = %q", entries[0].Data)
	}
}

func TestLoadPlainText(t *testing.T) {
	entries, _, err := Load("notes.log", []byte("just some text\n"), 1<<20)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "notes.log" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestLoadRejectsBinary(t *testing.T) {
	_, _, err := Load("blob.bin", []byte{0x00, 0x01, 0x02, 0xff}, 1<<20)
	if !errors.Is(err, ErrUnsupportedContainer) {
		t.Errorf("err = %v, want ErrUnsupportedContainer", err)
	}
}

func TestLoadRejectsCorruptZip(t *testing.T) {
	// A zip signature followed by garbage is not decodable text either.
	data := append([]byte{'P', 'K', 0x03, 0x04}, []byte("garbage")...)
	_, _, err := Load("bundle.zip", data, 1<<20)
	if !errors.Is(err, ErrUnsupportedContainer) {
		t.Errorf("err = %v, want ErrUnsupportedContainer", err)
	}
}
