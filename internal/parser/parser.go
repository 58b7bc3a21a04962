package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Style tags a block with its structural role in the source document.
type Style int

const (
	Body Style = iota
	Heading2
	Heading3
)

// Block is one ordered unit of document content: a topic heading, a
// subtopic heading, or a run of body text.
type Block struct {
	Style Style
	Text  string
}

// Parser converts raw document bytes into an ordered block sequence.
type Parser interface {
	Parse(r io.Reader, filename string) ([]Block, error)
}

// SupportedExtensions lists file extensions this service can handle.
// Formats without style-tagged headings (plain text, CSV, PDF) cannot
// drive topic extraction and are rejected up front.
var SupportedExtensions = map[string]bool{
	".docx":     true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".docx":
		return &DOCXParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}
