package parser

import (
	"strings"
	"testing"
)

func TestReconstructFoldsContinuations(t *testing.T) {
	input := strings.Join([]string{
		"2023-05-01T10:00:00Z ERROR request failed",
		"    at some.internal.Method(File.java:42)",
		"    at other.Method(File.java:7)",
		"2023-05-01T10:00:01Z INFO retrying",
		"",
	}, "\n")

	r := NewReconstructor(DefaultGrammars())
	lines, encoding := r.Reconstruct("app.log", []byte(input))

	if encoding != EncodingUTF8 {
		t.Errorf("encoding = %q, want %q", encoding, EncodingUTF8)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d logical lines, want 2", len(lines))
	}
	if len(lines[0].Segments) != 3 {
		t.Errorf("first line has %d segments, want 3", len(lines[0].Segments))
	}
	if len(lines[1].Segments) != 1 {
		t.Errorf("second line has %d segments, want 1", len(lines[1].Segments))
	}
	for i, l := range lines {
		if l.Index != i {
			t.Errorf("line %d has index %d", i, l.Index)
		}
		if l.Source != "app.log" {
			t.Errorf("line %d has source %q", i, l.Source)
		}
	}
}

func TestReconstructIsLossless(t *testing.T) {
	physical := []string{
		"2023-05-01T10:00:00Z ERROR boom",
		"\tcaused by: io failure",
		"2023-05-01T10:00:01Z INFO ok",
		"trailing noise",
	}
	input := strings.Join(physical, "\n")

	r := NewReconstructor(DefaultGrammars())
	lines, _ := r.Reconstruct("app.log", []byte(input))

	var rejoined []string
	for _, l := range lines {
		rejoined = append(rejoined, l.Text())
	}
	if got := strings.Join(rejoined, "\n"); got != input {
		t.Errorf("rejoined text differs from input:\n%q\nvs\n%q", got, input)
	}
}

func TestReconstructFirstLineAlwaysPrimary(t *testing.T) {
	// A file starting mid-stacktrace must not lose its leading lines.
	input := "    at orphan.Continuation(File.java:1)\n2023-05-01T10:00:00Z INFO ok\n"

	r := NewReconstructor(DefaultGrammars())
	lines, _ := r.Reconstruct("app.log", []byte(input))

	if len(lines) != 2 {
		t.Fatalf("got %d logical lines, want 2", len(lines))
	}
	if lines[0].Text() != "    at orphan.Continuation(File.java:1)" {
		t.Errorf("leading content lost: %q", lines[0].Text())
	}
}

func TestReconstructCRLF(t *testing.T) {
	input := "2023-05-01T10:00:00Z INFO one\r\n2023-05-01T10:00:01Z INFO two\r\n"

	r := NewReconstructor(DefaultGrammars())
	lines, _ := r.Reconstruct("app.log", []byte(input))

	if len(lines) != 2 {
		t.Fatalf("got %d logical lines, want 2", len(lines))
	}
	for _, l := range lines {
		if strings.Contains(l.Text(), "\r") {
			t.Errorf("carriage return leaked into %q", l.Text())
		}
	}
}

func TestReconstructEmptyInput(t *testing.T) {
	r := NewReconstructor(DefaultGrammars())
	lines, _ := r.Reconstruct("app.log", nil)
	if len(lines) != 0 {
		t.Errorf("got %d lines from empty input", len(lines))
	}
}

func TestDecodeTextLatin1Fallback(t *testing.T) {
	// 0xE9 is é in ISO 8859-1 but invalid standalone UTF-8.
	data := []byte("caf\xe9 closed\n")

	text, encoding := DecodeText(data)
	if encoding != EncodingLatin1 {
		t.Fatalf("encoding = %q, want %q", encoding, EncodingLatin1)
	}
	if !strings.Contains(text, "café") {
		t.Errorf("decoded text = %q, want café", text)
	}
}

func TestDecodeTextStripsBOM(t *testing.T) {
	text, encoding := DecodeText([]byte("\xef\xbb\xbfhello"))
	if encoding != EncodingUTF8 {
		t.Fatalf("encoding = %q", encoding)
	}
	if text != "hello" {
		t.Errorf("text = %q, want %q", text, "hello")
	}
}
