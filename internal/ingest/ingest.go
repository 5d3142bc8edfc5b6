package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// MaxBodySize bounds a raw upload in bytes
const MaxBodySize = 1 << 20

var (
	ErrEmpty       = errors.New("no text in body")
	ErrUnsupported = errors.New("unsupported content type")
	ErrTooLarge    = fmt.Errorf("body exceeds %d bytes", MaxBodySize)
)

// Document is text pulled out of a raw upload
type Document struct {
	Text    string `json:"-"`
	MIME    string `json:"mime"`
	Charset string `json:"charset"`
}

// Extract turns an uploaded body into UTF-8 text. The content type is
// sniffed from the bytes; a charset parameter on declared wins over
// detection. HTML is reduced to its visible text.
func Extract(body []byte, declared string) (*Document, error) {
	if len(body) > MaxBodySize {
		return nil, ErrTooLarge
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmpty
	}

	mt := mimetype.Detect(body)
	if !isText(mt) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mt.String())
	}

	cs := declaredCharset(declared)
	if cs == "" {
		cs = DetectCharset(body)
	}

	r, err := charset.NewReaderLabel(cs, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", cs, err)
	}

	doc := &Document{MIME: mt.String(), Charset: cs}
	if mt.Is("text/html") {
		doc.Text, err = htmlText(r)
	} else {
		var b []byte
		b, err = io.ReadAll(r)
		doc.Text = string(b)
	}
	if err != nil {
		return nil, err
	}

	doc.Text = strings.Join(strings.Fields(doc.Text), " ")
	if doc.Text == "" {
		return nil, ErrEmpty
	}
	return doc, nil
}

// isText accepts text/plain and everything derived from it
func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func declaredCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(params["charset"])
}

// DetectCharset returns the charset of data. Valid UTF-8 is taken as is.
func DetectCharset(data []byte) string {
	if utf8.Valid(data) {
		return "utf-8"
	}
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

func htmlText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()

	var parts []string
	doc.Find("title, body").Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	return strings.Join(parts, " "), nil
}
