// Package docx extracts plain text from Word .docx files.
package docx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

// wordNamespace is the WordprocessingML main namespace.
const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// documentPart is the zip entry holding the main document body.
const documentPart = "word/document.xml"

// MaxDocumentXMLBytes caps the decompressed size of the document part.
const MaxDocumentXMLBytes = 32 << 20

var (
	// ErrNotDocx indicates the input is not a readable .docx package.
	ErrNotDocx = errors.New("not a docx file")

	// ErrTooLarge indicates the document body exceeds MaxDocumentXMLBytes.
	ErrTooLarge = errors.New("docx document too large")
)

// ExtractText returns the text of every top-level body paragraph, joined by
// newlines. Tables, headers and footers are not included.
func ExtractText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", fmt.Errorf("%w: missing %s", ErrNotDocx, documentPart)
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotDocx, err)
	}
	defer rc.Close()

	limited := &io.LimitedReader{R: rc, N: MaxDocumentXMLBytes + 1}
	paragraphs, err := paragraphs(limited)
	if limited.N <= 0 {
		return "", ErrTooLarge
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotDocx, err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// paragraphs walks the document XML and collects body paragraph text.
func paragraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		out        []string
		current    strings.Builder
		inPara     bool
		inText     bool
		tableDepth int
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "p":
				if tableDepth == 0 {
					inPara = true
					current.Reset()
				}
			case "t":
				inText = inPara
			case "tab":
				if inPara {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if inPara {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "tbl":
				tableDepth--
			case "p":
				if inPara && tableDepth == 0 {
					out = append(out, current.String())
					inPara = false
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
}
