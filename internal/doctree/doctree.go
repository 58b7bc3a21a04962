package doctree

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TopicNode is one heading-bound section of a document. Translation and
// speech fields start empty and are filled in by the annotation pipeline.
type TopicNode struct {
	Name              string // Heading text, unique within siblings
	Text              string // Aggregated body text (may be empty)
	HindiText         string
	GujText           string
	EngSpeechFileID   string
	HindiSpeechFileID string
	GujSpeechFileID   string
	Subtopics         Tree
}

// Tree is an ordered sequence of topic nodes. It serializes as a JSON
// object keyed by node name, preserving insertion order on both marshal
// and unmarshal.
type Tree []*TopicNode

// nodeBody is the wire shape of a node minus its name, which lives in the
// enclosing object key.
type nodeBody struct {
	Text              string `json:"text"`
	HindiText         string `json:"hindi_text"`
	GujText           string `json:"guj_text"`
	EngSpeechFileID   string `json:"eng_speech_file_id"`
	HindiSpeechFileID string `json:"hindi_speech_file_id"`
	GujSpeechFileID   string `json:"guj_speech_file_id"`
	Subtopics         Tree   `json:"subtopics"`
}

func (n *TopicNode) MarshalJSON() ([]byte, error) {
	body := nodeBody{
		Text:              n.Text,
		HindiText:         n.HindiText,
		GujText:           n.GujText,
		EngSpeechFileID:   n.EngSpeechFileID,
		HindiSpeechFileID: n.HindiSpeechFileID,
		GujSpeechFileID:   n.GujSpeechFileID,
		Subtopics:         n.Subtopics,
	}
	if body.Subtopics == nil {
		body.Subtopics = Tree{}
	}
	return json.Marshal(body)
}

func (n *TopicNode) UnmarshalJSON(data []byte) error {
	var body nodeBody
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	n.Text = body.Text
	n.HindiText = body.HindiText
	n.GujText = body.GujText
	n.EngSpeechFileID = body.EngSpeechFileID
	n.HindiSpeechFileID = body.HindiSpeechFileID
	n.GujSpeechFileID = body.GujSpeechFileID
	n.Subtopics = body.Subtopics
	return nil
}

func (t Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, node := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(node.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(node)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (t *Tree) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("doctree: expected object, got %v", tok)
	}

	out := Tree{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("doctree: expected string key, got %v", keyTok)
		}
		node := &TopicNode{}
		if err := dec.Decode(node); err != nil {
			return err
		}
		node.Name = name
		out = append(out, node)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*t = out
	return nil
}

// Walk visits every node depth-first: each top-level node in order, then
// its subtopics in order.
func (t Tree) Walk(fn func(n *TopicNode)) {
	for _, node := range t {
		fn(node)
		node.Subtopics.Walk(fn)
	}
}

// NodeCount returns the total number of nodes in the tree.
func (t Tree) NodeCount() int {
	count := 0
	t.Walk(func(*TopicNode) { count++ })
	return count
}
