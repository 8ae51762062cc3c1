package models

import (
	"gopkg.in/yaml.v3"
)

// LinkList is a list of link targets kept as parsed from frontmatter.
// A value that is not a YAML sequence is preserved so it can be reported
// and written back unchanged.
type LinkList struct {
	Items []string
	raw   *yaml.Node
}

// NewLinkList wraps items.
func NewLinkList(items ...string) LinkList {
	return LinkList{Items: items}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *LinkList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		l.Items = nil
		l.raw = node
		return nil
	}
	l.raw = nil
	l.Items = make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			l.Items = append(l.Items, "")
			continue
		}
		l.Items = append(l.Items, item.Value)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (l LinkList) MarshalYAML() (interface{}, error) {
	if l.raw != nil {
		return l.raw, nil
	}
	return l.Items, nil
}

// IsZero lets omitempty drop unset lists.
func (l LinkList) IsZero() bool {
	return l.raw == nil && l.Items == nil
}

// IsList reports whether the frontmatter value was a sequence.
func (l LinkList) IsList() bool {
	return l.raw == nil
}
