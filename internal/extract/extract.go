// Package extract folds an ordered block sequence into a topic tree.
package extract

import (
	"fmt"
	"strings"

	"github.com/docvoice/docvoice/internal/doctree"
	"github.com/docvoice/docvoice/internal/parser"
)

// MalformedDocumentError indicates the input has no extractable topic
// structure. It is fatal for the whole document.
type MalformedDocumentError struct {
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed document: %s", e.Reason)
}

// BuildTree runs a single pass over the blocks with two local cursors:
// the current topic (level-2 heading) and the current subtopic (level-3).
// Body text attaches to the deepest active cursor; body text before the
// first heading is discarded. Node names are unique within siblings: a
// repeated heading reopens the existing node and its body text is
// appended, so the serialized object never carries duplicate keys.
func BuildTree(blocks []parser.Block) (doctree.Tree, error) {
	var (
		tree     doctree.Tree
		topic    *doctree.TopicNode
		subtopic *doctree.TopicNode
	)

	for _, block := range blocks {
		switch block.Style {
		case parser.Heading2:
			if existing := findSibling(tree, block.Text); existing != nil {
				topic = existing
			} else {
				topic = &doctree.TopicNode{Name: block.Text}
				tree = append(tree, topic)
			}
			subtopic = nil
		case parser.Heading3:
			if topic == nil {
				return nil, &MalformedDocumentError{
					Reason: fmt.Sprintf("subtopic heading %q appears before any topic heading", block.Text),
				}
			}
			if existing := findSibling(topic.Subtopics, block.Text); existing != nil {
				subtopic = existing
			} else {
				subtopic = &doctree.TopicNode{Name: block.Text}
				topic.Subtopics = append(topic.Subtopics, subtopic)
			}
		case parser.Body:
			if topic == nil {
				continue
			}
			target := topic
			if subtopic != nil {
				target = subtopic
			}
			appendText(target, block.Text)
		}
	}

	if len(tree) == 0 {
		return nil, &MalformedDocumentError{Reason: "no topic headings found"}
	}
	return tree, nil
}

func findSibling(t doctree.Tree, name string) *doctree.TopicNode {
	for _, n := range t {
		if n.Name == name {
			return n
		}
	}
	return nil
}

func appendText(n *doctree.TopicNode, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if n.Text != "" {
		n.Text += "\n\n" + text
	} else {
		n.Text = text
	}
}
