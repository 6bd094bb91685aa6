package export

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"archive/zip"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// srcEncoding describes the Unicode transformation format detected from the
// head of a source file. Sources without a BOM report encUnknown and are
// left to the XML prolog to describe themselves.
type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

// sniffLen is how much of a file head the detectors look at.
const sniffLen = 512

// docType marks XML sources whose root element is <document>.
var docType = filetype.NewType("dtc", "application/x-dtc+xml")

func init() {
	filetype.AddMatcher(docType, func(buf []byte) bool {
		i := bytes.Index(buf, []byte("<document"))
		if i < 0 {
			return false
		}
		rest := buf[i+len("<document"):]
		if len(rest) == 0 {
			return true
		}
		switch rest[0] {
		case '>', '/', ' ', '\t', '\r', '\n':
			return true
		}
		return false
	})
}

func isUTF8BOM3(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xFE
}

func isUTF32BigEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

// detectUTF reports the encoding signaled by a byte order mark. UTF-32
// marks are checked first: the little endian UTF-32 BOM starts with the
// UTF-16 one.
func detectUTF(buf []byte) srcEncoding {
	switch {
	case isUTF32BigEndianBOM4(buf):
		return encUTF32BigEndian
	case isUTF32LittleEndianBOM4(buf):
		return encUTF32LittleEndian
	case isUTF8BOM3(buf):
		return encUTF8
	case isUTF16BigEndianBOM2(buf):
		return encUTF16BigEndian
	case isUTF16LittleEndianBOM2(buf):
		return encUTF16LittleEndian
	default:
		return encUnknown
	}
}

// selectReader wraps r with a decoder for the detected encoding. Sources
// without a BOM pass through untouched, their XML prolog names the charset
// and the loader honors it.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUnknown:
		return r
	case encUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.UseBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.UseBOM).NewDecoder())
	default:
		// this should never happen
		panic("unsupported source encoding requested")
	}
}

// isArchiveFile reports whether path is a zip archive worth looking into.
// A wrong extension or unrecognizable content is not an error, the caller
// just moves on.
func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}

// isDocFile reports whether path holds a document source, along with the
// encoding its BOM declares.
func isDocFile(path string) (bool, srcEncoding, error) {
	if !strings.EqualFold(filepath.Ext(path), ".xml") {
		return false, encUnknown, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, encUnknown, err
	}
	defer f.Close()

	return matchDocument(f)
}

// isDocInArchive is isDocFile for an entry inside a zip archive.
func isDocInArchive(f *zip.File) (bool, srcEncoding, error) {
	if !strings.EqualFold(filepath.Ext(f.FileHeader.Name), ".xml") {
		return false, encUnknown, nil
	}

	r, err := f.Open()
	if err != nil {
		return false, encUnknown, err
	}
	defer r.Close()

	return matchDocument(r)
}

// matchDocument sniffs the head of a source: the encoding comes from the
// BOM, and the document check runs on the decoded text so UTF-16/32
// sources match too.
func matchDocument(r io.Reader) (bool, srcEncoding, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, encUnknown, err
	}
	head = head[:n]

	enc := detectUTF(head)
	decoded, err := io.ReadAll(selectReader(bytes.NewReader(head), enc))
	if err != nil {
		// undecodable head cannot be a document
		return false, enc, nil
	}
	return filetype.IsType(decoded, docType), enc, nil
}
