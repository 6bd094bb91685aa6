package export

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

const docHead = `<?xml version="1.0"?>
<document title="Detection probe">
<par>Some content to look at.</par>
</document>`

// utf16le encodes an ASCII string as UTF-16LE with a BOM.
func utf16le(s string) []byte {
	out := []byte{0xFF, 0xFE}
	for _, c := range []byte(s) {
		out = append(out, c, 0x00)
	}
	return out
}

func writeTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("non-zip extension", func(t *testing.T) {
		path := writeTestFile(t, tmpDir, "test.txt", []byte("not a zip"))
		got, err := isArchiveFile(path)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("zip extension but invalid content", func(t *testing.T) {
		path := writeTestFile(t, tmpDir, "test.zip", []byte("not a real zip file"))
		got, err := isArchiveFile(path)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("valid zip file", func(t *testing.T) {
		path := filepath.Join(tmpDir, "test2.zip")
		zf, err := os.Create(path)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		w := zip.NewWriter(zf)
		f, err := w.Create("test.txt")
		if err != nil {
			t.Fatalf("zip Create: %v", err)
		}
		f.Write(make([]byte, 300))
		w.Close()
		zf.Close()

		got, err := isArchiveFile(path)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if !got {
			t.Error("isArchiveFile() = false, want true")
		}
	})
}

func TestIsArchiveFileNonExistent(t *testing.T) {
	if _, err := isArchiveFile("/nonexistent/file.zip"); err == nil {
		t.Error("isArchiveFile() = nil error, want one for a missing file")
	}
}

func TestDetectUTF(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want srcEncoding
	}{
		{"UTF-8 BOM", []byte{0xEF, 0xBB, 0xBF, 0x00}, encUTF8},
		{"UTF-16 big endian BOM", []byte{0xFE, 0xFF, 0x00, 0x00}, encUTF16BigEndian},
		// differs from the UTF-32LE mark only in the trailing pair
		{"UTF-16 little endian BOM", []byte{0xFF, 0xFE, 0x01, 0x00}, encUTF16LittleEndian},
		{"UTF-32 big endian BOM", []byte{0x00, 0x00, 0xFE, 0xFF}, encUTF32BigEndian},
		{"UTF-32 little endian BOM", []byte{0xFF, 0xFE, 0x00, 0x00}, encUTF32LittleEndian},
		{"no BOM", []byte{0x00, 0x01, 0x02, 0x03}, encUnknown},
		{"empty", nil, encUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectUTF(tt.buf); got != tt.want {
				t.Errorf("detectUTF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBOMDetectionFunctions(t *testing.T) {
	t.Run("isUTF8BOM3", func(t *testing.T) {
		if !isUTF8BOM3([]byte{0xEF, 0xBB, 0xBF}) {
			t.Error("want true for UTF-8 BOM")
		}
		if isUTF8BOM3([]byte{0x00, 0x00, 0x00}) {
			t.Error("want false for non-BOM")
		}
	})

	t.Run("isUTF16BigEndianBOM2", func(t *testing.T) {
		if !isUTF16BigEndianBOM2([]byte{0xFE, 0xFF}) {
			t.Error("want true for UTF-16 BE BOM")
		}
		if isUTF16BigEndianBOM2([]byte{0xFF, 0xFE}) {
			t.Error("want false for UTF-16 LE BOM")
		}
	})

	t.Run("isUTF16LittleEndianBOM2", func(t *testing.T) {
		if !isUTF16LittleEndianBOM2([]byte{0xFF, 0xFE}) {
			t.Error("want true for UTF-16 LE BOM")
		}
		if isUTF16LittleEndianBOM2([]byte{0xFE, 0xFF}) {
			t.Error("want false for UTF-16 BE BOM")
		}
	})

	t.Run("isUTF32BigEndianBOM4", func(t *testing.T) {
		if !isUTF32BigEndianBOM4([]byte{0x00, 0x00, 0xFE, 0xFF}) {
			t.Error("want true for UTF-32 BE BOM")
		}
		if isUTF32BigEndianBOM4([]byte{0xFF, 0xFE, 0x00, 0x00}) {
			t.Error("want false for UTF-32 LE BOM")
		}
	})

	t.Run("isUTF32LittleEndianBOM4", func(t *testing.T) {
		if !isUTF32LittleEndianBOM4([]byte{0xFF, 0xFE, 0x00, 0x00}) {
			t.Error("want true for UTF-32 LE BOM")
		}
		if isUTF32LittleEndianBOM4([]byte{0x00, 0x00, 0xFE, 0xFF}) {
			t.Error("want false for UTF-32 BE BOM")
		}
	})
}

func TestIsDocFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantDoc  bool
		wantEnc  srcEncoding
	}{
		{
			name:     "plain document",
			filename: "test.xml",
			content:  []byte(docHead),
			wantDoc:  true,
			wantEnc:  encUnknown,
		},
		{
			name:     "document with UTF-8 BOM",
			filename: "test-utf8.xml",
			content:  append([]byte{0xEF, 0xBB, 0xBF}, docHead...),
			wantDoc:  true,
			wantEnc:  encUTF8,
		},
		{
			name:     "document in UTF-16LE",
			filename: "test-utf16.xml",
			content:  utf16le(docHead),
			wantDoc:  true,
			wantEnc:  encUTF16LittleEndian,
		},
		{
			name:     "wrong extension",
			filename: "test.txt",
			content:  []byte(docHead),
			wantDoc:  false,
			wantEnc:  encUnknown,
		},
		{
			name:     "xml extension but not a document",
			filename: "other.xml",
			content:  []byte(`<?xml version="1.0"?><book><p>text</p></book>`),
			wantDoc:  false,
			wantEnc:  encUnknown,
		},
		{
			name:     "similar root element",
			filename: "docs.xml",
			content:  []byte(`<?xml version="1.0"?><documentation>text</documentation>`),
			wantDoc:  false,
			wantEnc:  encUnknown,
		},
		{
			name:     "uppercase extension",
			filename: "test.XML",
			content:  []byte(docHead),
			wantDoc:  true,
			wantEnc:  encUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestFile(t, tmpDir, tt.filename, tt.content)

			gotDoc, gotEnc, err := isDocFile(path)
			if err != nil {
				t.Fatalf("isDocFile() error = %v", err)
			}
			if gotDoc != tt.wantDoc {
				t.Errorf("isDocFile() doc = %v, want %v", gotDoc, tt.wantDoc)
			}
			if gotEnc != tt.wantEnc {
				t.Errorf("isDocFile() encoding = %v, want %v", gotEnc, tt.wantEnc)
			}
		})
	}
}

func TestIsDocFileNonExistent(t *testing.T) {
	if _, _, err := isDocFile("/nonexistent/file.xml"); err == nil {
		t.Error("isDocFile() = nil error, want one for a missing file")
	}
}

func TestIsDocInArchive(t *testing.T) {
	tmpDir := t.TempDir()
	zipPath := filepath.Join(tmpDir, "test.zip")

	zf, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	w := zip.NewWriter(zf)
	entries := []struct {
		name    string
		content []byte
	}{
		{"test.xml", []byte(docHead)},
		{"test.txt", []byte("not a document")},
		{"test-bom.xml", append([]byte{0xEF, 0xBB, 0xBF}, docHead...)},
	}
	for _, e := range entries {
		f, err := w.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Store})
		if err != nil {
			t.Fatalf("zip CreateHeader: %v", err)
		}
		if _, err := f.Write(e.content); err != nil {
			t.Fatalf("zip Write: %v", err)
		}
	}
	w.Close()
	zf.Close()

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	tests := []struct {
		name    string
		fileIdx int
		wantDoc bool
		wantEnc srcEncoding
	}{
		{"document in archive", 0, true, encUnknown},
		{"non-document in archive", 1, false, encUnknown},
		{"document with BOM in archive", 2, true, encUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotDoc, gotEnc, err := isDocInArchive(r.File[tt.fileIdx])
			if err != nil {
				t.Fatalf("isDocInArchive() error = %v", err)
			}
			if gotDoc != tt.wantDoc {
				t.Errorf("isDocInArchive() doc = %v, want %v", gotDoc, tt.wantDoc)
			}
			if gotEnc != tt.wantEnc {
				t.Errorf("isDocInArchive() encoding = %v, want %v", gotEnc, tt.wantEnc)
			}
		})
	}
}

func TestSelectReaderDecodes(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		enc  srcEncoding
		want string
	}{
		{"passthrough", []byte("plain text"), encUnknown, "plain text"},
		{"utf8 BOM stripped", append([]byte{0xEF, 0xBB, 0xBF}, "hello"...), encUTF8, "hello"},
		{"utf16 little endian", utf16le("hello"), encUTF16LittleEndian, "hello"},
		{"utf16 big endian", []byte{0xFE, 0xFF, 0x00, 'h', 0x00, 'i'}, encUTF16BigEndian, "hi"},
		{"utf32 little endian", []byte{0xFF, 0xFE, 0x00, 0x00, 'h', 0x00, 0x00, 0x00, 'i', 0x00, 0x00, 0x00}, encUTF32LittleEndian, "hi"},
		{"utf32 big endian", []byte{0x00, 0x00, 0xFE, 0xFF, 0x00, 0x00, 0x00, 'h', 0x00, 0x00, 0x00, 'i'}, encUTF32BigEndian, "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(selectReader(bytes.NewReader(tt.raw), tt.enc))
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("decoded = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectReaderPanicsOnBadEncoding(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("selectReader accepted an invalid encoding, want panic")
		}
	}()
	selectReader(bytes.NewReader([]byte("test")), srcEncoding(999))
}
