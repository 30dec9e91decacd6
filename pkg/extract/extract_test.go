package extract_test

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/recall/pkg/extract"
)

func TestExtract_PlainText(t *testing.T) {
	e := extract.New()

	text, err := e.Extract([]byte("hello world"), "notes.txt")

	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestExtract_UnknownExtensionFallsBack(t *testing.T) {
	e := extract.New()

	text, err := e.Extract([]byte("raw bytes here"), "data.bin")

	require.NoError(t, err)
	assert.Equal(t, "raw bytes here", text)
}

func TestExtract_InvalidUTF8Dropped(t *testing.T) {
	e := extract.New()

	text, err := e.Extract([]byte{'o', 'k', 0xff, 0xfe, '!'}, "broken.txt")

	require.NoError(t, err)
	assert.Equal(t, "ok!", text)
}

func TestExtract_HTML(t *testing.T) {
	e := extract.New()

	html := `<html><head><style>body{color:red}</style></head>` +
		`<body><script>alert(1)</script><p>visible text</p></body></html>`
	text, err := e.Extract([]byte(html), "page.html")

	require.NoError(t, err)
	assert.Contains(t, text, "visible text")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
}

func TestExtract_Docx(t *testing.T) {
	e := extract.New()

	text, err := e.Extract(buildDocx(t, []string{"first paragraph", "second paragraph"}), "report.docx")

	require.NoError(t, err)
	assert.Contains(t, text, "first paragraph")
	assert.Contains(t, text, "second paragraph")
}

func TestExtract_DocxMissingBody(t *testing.T) {
	e := extract.New()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	require.NoError(t, zw.Close())

	_, err := e.Extract(buf.Bytes(), "empty.docx")
	assert.Error(t, err)
}

func buildDocx(t *testing.T, paragraphs []string) []byte {
	t.Helper()

	var body bytes.Buffer
	body.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write(body.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return buf.Bytes()
}
