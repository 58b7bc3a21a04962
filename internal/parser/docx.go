package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files.
type DOCXParser struct{}

// Paragraph styles that carry no section content.
var skipStyles = map[string]bool{
	"TOC 1":  true,
	"TOC 2":  true,
	"TOC 3":  true,
	"TOC1":   true,
	"TOC2":   true,
	"TOC3":   true,
	"Header": true,
	"Footer": true,
}

func (p *DOCXParser) Parse(r io.Reader, filename string) ([]Block, error) {
	// go-docx needs a ReadSeeker+size, so write to a temp file.
	tmp, err := os.CreateTemp("", "docvoice-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, int64(size))
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var blocks []Block
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}

		style := docxStyle(para)
		switch {
		case strings.EqualFold(style, "Heading2") || strings.EqualFold(style, "heading 2"):
			blocks = append(blocks, Block{Style: Heading2, Text: text})
		case strings.EqualFold(style, "Heading3") || strings.EqualFold(style, "heading 3"):
			blocks = append(blocks, Block{Style: Heading3, Text: text})
		case strings.HasPrefix(strings.ToLower(style), "heading"):
			// Heading levels outside 2-3 are neither topics nor body text.
			continue
		case skipStyles[style]:
			continue
		default:
			blocks = append(blocks, Block{Style: Body, Text: text})
		}
	}

	return blocks, nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
