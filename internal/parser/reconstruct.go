package parser

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/log-inspector/backend/internal/models"
)

// Encoding names reported by DecodeText.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

// DecodeText decodes raw bytes to text. UTF-8 is attempted first; on
// invalid UTF-8 the bytes are re-read as ISO 8859-1, which accepts any
// byte sequence, so decoding never rejects a file outright.
func DecodeText(data []byte) (string, string) {
	if utf8.Valid(data) {
		text := string(data)
		// Strip a UTF-8 BOM if present.
		text = strings.TrimPrefix(text, "\ufeff")
		return text, EncodingUTF8
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		// ISO 8859-1 maps every byte; this path is unreachable in
		// practice but the contract stays total either way.
		return string(data), EncodingLatin1
	}
	return string(decoded), EncodingLatin1
}

// Reconstructor folds physical lines into logical lines. A physical line
// matching any active grammar's start signature begins a new logical
// line; everything else is a continuation of the current one (stack
// traces, wrapped messages).
type Reconstructor struct {
	grammars []Grammar
}

// NewReconstructor creates a reconstructor over the active grammar list.
func NewReconstructor(grammars []Grammar) *Reconstructor {
	return &Reconstructor{grammars: grammars}
}

// Reconstruct decodes data and returns its logical lines in strictly
// increasing sequence order, plus the detected encoding name. Both LF
// and CRLF terminators are accepted. The very first physical line is
// always treated as primary so leading content is never dropped.
func (r *Reconstructor) Reconstruct(source string, data []byte) ([]models.LogicalLine, string) {
	text, encoding := DecodeText(data)
	if text == "" {
		return nil, encoding
	}

	physical := strings.Split(text, "\n")
	// A trailing newline produces one empty trailing element, which is
	// an artifact of the split, not an empty log line.
	if physical[len(physical)-1] == "" {
		physical = physical[:len(physical)-1]
	}

	lines := make([]models.LogicalLine, 0, len(physical))
	for _, raw := range physical {
		raw = strings.TrimSuffix(raw, "\r")

		if len(lines) == 0 || r.startsLine(raw) {
			lines = append(lines, models.LogicalLine{
				Source:   source,
				Index:    len(lines),
				Segments: []string{raw},
			})
			continue
		}

		last := &lines[len(lines)-1]
		last.Segments = append(last.Segments, raw)
	}

	return lines, encoding
}

func (r *Reconstructor) startsLine(line string) bool {
	for _, g := range r.grammars {
		if g.StartsLine(line) {
			return true
		}
	}
	return false
}
