package repoconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RepoEntry is the writable description of a repository entry.
type RepoEntry struct {
	Name             string
	Path             string
	Domains          map[string]string
	DefaultDomainDir string
	Template         string
	Git              string
}

// UpsertRepo adds or replaces entry in the config file at path, creating
// the file when needed. A legacy flat layout is rewritten in keyed form.
// When makeDefault is set, defaultRepo is pointed at the entry.
func UpsertRepo(path string, entry RepoEntry, makeDefault bool) error {
	if entry.Name == "" || entry.Path == "" {
		return fmt.Errorf("repoconfig: repo name and path are required")
	}

	data, err := os.ReadFile(path) // #nosec G304 - config path from caller
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("repoconfig: read %s: %w", path, err)
	}

	var root yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &root); err != nil {
			return fmt.Errorf("repoconfig: parse %s: %w", path, err)
		}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		root.Content[0] = &yaml.Node{Kind: yaml.MappingNode}
		mapping = root.Content[0]
	}

	repos, err := keyedReposNode(lookup(mapping, "repos"))
	if err != nil {
		return fmt.Errorf("repoconfig: %s: %w", path, err)
	}

	e := rawEntry{
		name:             entry.Name,
		path:             entry.Path,
		domains:          entry.Domains,
		defaultDomainDir: entry.DefaultDomainDir,
		template:         entry.Template,
		git:              entry.Git,
	}
	setKey(repos, entry.Name, e.keyedNode())
	setKey(mapping, "repos", repos)
	if makeDefault {
		setKey(mapping, "defaultRepo", &yaml.Node{Kind: yaml.ScalarNode, Value: entry.Name})
	}

	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return fmt.Errorf("repoconfig: encode: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("repoconfig: close encoder: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("repoconfig: mkdir: %w", err)
	}
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("repoconfig: write %s: %w", path, err)
	}
	return nil
}

// keyedReposNode returns node in keyed form, converting the flat layout.
func keyedReposNode(node *yaml.Node) (*yaml.Node, error) {
	if node == nil {
		return &yaml.Node{Kind: yaml.MappingNode}, nil
	}
	shape, err := parseShape(node)
	if err != nil {
		return nil, err
	}
	switch s := shape.(type) {
	case flatShape:
		keyed := &yaml.Node{Kind: yaml.MappingNode}
		setKey(keyed, s.entry.name, s.entry.keyedNode())
		return keyed, nil
	default:
		if node.Kind != yaml.MappingNode {
			return &yaml.Node{Kind: yaml.MappingNode}, nil
		}
		return node, nil
	}
}

func setKey(mapping *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		value,
	)
}
