// Package protocol defines the documents exchanged with layout hosts: tree
// descriptions going in, computed geometry and errors coming out.
package protocol

import (
	"fmt"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/woxQAQ/taffy-bridge/pkg/layout"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format by file extension. Unknown extensions
// are read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Available is the space a document is laid out in.
type Available struct {
	Width  float32 `json:"width" yaml:"width"`
	Height float32 `json:"height" yaml:"height"`
}

// Node describes one node of a tree.
type Node struct {
	// ID names the node in results. Optional, unique when set.
	ID    string            `json:"id,omitempty" yaml:"id,omitempty"`
	Style layout.Descriptor `json:"style" yaml:"style"`
	// Text is measured content for leaves.
	Text     string  `json:"text,omitempty" yaml:"text,omitempty"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// Document is a tree to lay out.
type Document struct {
	Available Available `json:"available" yaml:"available"`
	Root      *Node     `json:"root" yaml:"root"`
}

// ParseDocument decodes and validates a document.
func ParseDocument(data []byte, format Format) (*Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s document: %w", format, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the tree shape. Styles are checked when the tree is
// built.
func (d *Document) Validate() error {
	if d.Root == nil {
		return fmt.Errorf("document has no root node")
	}
	if d.Available.Width < 0 || d.Available.Height < 0 {
		return fmt.Errorf("available space must not be negative")
	}
	seen := make(map[string]bool)
	return d.Root.validate("root", seen)
}

func (n *Node) validate(path string, seen map[string]bool) error {
	if n == nil {
		return fmt.Errorf("%s: empty node", path)
	}
	if n.Style == nil {
		return fmt.Errorf("%s: missing style", path)
	}
	if n.ID != "" {
		if seen[n.ID] {
			return fmt.Errorf("%s: duplicate id %q", path, n.ID)
		}
		seen[n.ID] = true
	}
	if n.Text != "" && len(n.Children) > 0 {
		return fmt.Errorf("%s: a node with text cannot have children", path)
	}
	for i, c := range n.Children {
		if err := c.validate(fmt.Sprintf("%s.children[%d]", path, i), seen); err != nil {
			return err
		}
	}
	return nil
}
