// Package parser splits and composes Markdown files with YAML frontmatter.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// ErrNoFrontmatter is returned when data has no leading frontmatter block.
var ErrNoFrontmatter = errors.New("no frontmatter")

// Decode unmarshals the frontmatter of data into target and returns the body.
func Decode(data []byte, target interface{}) (string, error) {
	block, body, ok := split(data)
	if !ok {
		return "", ErrNoFrontmatter
	}
	if err := yaml.Unmarshal(block, target); err != nil {
		return "", fmt.Errorf("parse frontmatter: %w", err)
	}
	return body, nil
}

// Body returns the Markdown body of data, or all of data when it carries no
// frontmatter.
func Body(data []byte) string {
	if _, body, ok := split(data); ok {
		return body
	}
	return string(data)
}

// Encode renders meta as a frontmatter block followed by body.
func Encode(meta interface{}, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	buf.WriteString(delim + "\n")
	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(body)
	}
	return buf.Bytes(), nil
}

// split separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body.
func split(data []byte) ([]byte, string, bool) {
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", false
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", false
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	// Drop the rest of the closing delimiter line, then the single blank
	// separator line Encode writes. Further leading blank lines are body.
	body := trimLineEnd(trimLineEnd(string(afterDelim)))
	return yamlBlock, body, true
}

func trimLineEnd(s string) string {
	if strings.HasPrefix(s, "\r\n") {
		return s[2:]
	}
	return strings.TrimPrefix(s, "\n")
}

// Title returns the text of the first H1 heading in body, or "".
func Title(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
