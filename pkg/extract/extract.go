// Package extract converts uploaded file bytes into plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

type Extractor struct{}

func New() Extractor {
	return Extractor{}
}

// Extract returns the text content of the file based on its extension.
// Plain text and unknown extensions use a lossy UTF-8 decode.
func (e Extractor) Extract(fileBytes []byte, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(fileBytes)
	case ".docx":
		return extractDocx(fileBytes)
	case ".html", ".htm":
		return extractHTML(fileBytes)
	default:
		return decodeUTF8(fileBytes), nil
	}
}

func extractPDF(b []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	content, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, content); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return sb.String(), nil
}

// extractDocx pulls the runs of text out of word/document.xml. Paragraph
// ends become newlines so downstream previews stay readable.
func extractDocx(b []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("docx has no word/document.xml")
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open docx body: %w", err)
	}
	defer rc.Close()

	var sb strings.Builder
	dec := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse docx body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

func extractHTML(b []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style").Remove()
	return doc.Text(), nil
}

// decodeUTF8 performs a lossy UTF-8 decode, dropping invalid byte
// sequences instead of replacing them.
func decodeUTF8(b []byte) string {
	s := string(b)
	if utf8.ValidString(s) {
		return s
	}

	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
