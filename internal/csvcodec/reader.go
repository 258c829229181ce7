package csvcodec

// reader.go turns an uploaded byte stream into a Table.
//
// Bulk files arrive from spreadsheet exports, so the reader handles the usual
// suspects before decoding:
//
//   - a UTF-8 byte order mark written by Windows tools
//   - legacy single-byte code pages (windows-1252, windows-1251)
//   - invalid UTF-8 sequences, replaced with U+FFFD
//   - an upper bound on input size

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Supported input encodings.
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
	EncodingWindows1251 = "windows-1251"
)

var (
	// ErrFileTooLarge is returned when the input exceeds ReadOptions.MaxSize.
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmptyFile is returned when the input holds no rows at all.
	ErrEmptyFile = errors.New("empty file")

	// ErrUnsupportedEncoding is returned for an unknown encoding name.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadOptions controls ReadTable.
type ReadOptions struct {
	// Encoding is one of the Encoding constants; empty means UTF-8.
	Encoding string

	// MaxSize is the largest accepted input in bytes; zero means unlimited.
	MaxSize int64
}

// ReadTable reads all of r and decodes it into a Table.
func ReadTable(r io.Reader, opts ReadOptions) (Table, error) {
	src, err := NewReader(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	if opts.MaxSize > 0 {
		src = io.LimitReader(src, opts.MaxSize+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if opts.MaxSize > 0 && int64(len(data)) > opts.MaxSize {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, opts.MaxSize)
	}

	table := Decode(SanitizeUTF8(string(data)))
	if len(table) == 0 {
		return nil, ErrEmptyFile
	}
	return table, nil
}

// NewReader wraps r so that it yields UTF-8 text with any leading byte order
// mark removed. Single-byte code pages are transcoded on the fly.
func NewReader(r io.Reader, encoding string) (io.Reader, error) {
	switch NormalizeEncoding(encoding) {
	case EncodingUTF8:
		return NewBOMSkippingReader(r), nil
	case EncodingWindows1252:
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case EncodingWindows1251:
		return transform.NewReader(r, charmap.Windows1251.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, encoding)
	}
}

// NormalizeEncoding maps common spellings of an encoding name onto the
// Encoding constants. Unknown names are returned lower-cased.
func NormalizeEncoding(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "utf8", "utf-8":
		return EncodingUTF8
	case "cp1252", "windows-1252", "latin1", "iso-8859-1":
		return EncodingWindows1252
	case "cp1251", "windows-1251":
		return EncodingWindows1251
	}
	return n
}

// BOMSkippingReader drops a UTF-8 byte order mark from the start of the
// stream and passes everything else through unchanged.
type BOMSkippingReader struct {
	r       *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a BOMSkippingReader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{r: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (b *BOMSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = b.r.Discard(len(utf8BOM))
		}
	}
	return b.r.Read(p)
}

// SanitizeUTF8 replaces every byte that does not start a valid UTF-8
// sequence with U+FFFD.
func SanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
		} else {
			b.WriteString(s[:size])
		}
		s = s[size:]
	}
	return b.String()
}
