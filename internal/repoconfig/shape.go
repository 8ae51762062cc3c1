package repoconfig

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/drctl/drctl/internal/gitmode"
	"github.com/drctl/drctl/internal/pathutil"
)

// pathKeys are the accepted spellings of an entry's directory.
var pathKeys = []string{"path", "root", "directory", "dir"}

// reposShape is the tagged union of accepted `repos:` layouts.
type reposShape interface {
	isReposShape()
}

// keyedShape is `repos: {<name>: {path: ...}}`.
type keyedShape struct {
	entries []rawEntry
}

// flatShape is the legacy `repos: {name: x, path: ...}`.
type flatShape struct {
	entry rawEntry
}

func (keyedShape) isReposShape() {}
func (flatShape) isReposShape()  {}

type rawEntry struct {
	name             string
	path             string
	domains          map[string]string
	defaultDomainDir string
	template         string
	git              string
}

func parseShape(node *yaml.Node) (reposShape, error) {
	if node.Kind == 0 {
		return keyedShape{}, nil
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return keyedShape{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("repos must be a mapping")
	}

	if isFlat(node) {
		e := entryFromMapping(node)
		name := scalarValue(node, "name")
		if name == "" {
			name = "default"
		}
		e.name = name
		return flatShape{entry: e}, nil
	}

	var out keyedShape
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		val := node.Content[i+1]
		var e rawEntry
		switch val.Kind {
		case yaml.ScalarNode:
			e = rawEntry{path: val.Value}
		case yaml.MappingNode:
			e = entryFromMapping(val)
		default:
			e = rawEntry{}
		}
		e.name = name
		out.entries = append(out.entries, e)
	}
	return out, nil
}

// isFlat reports a mapping that carries a path key directly as a scalar.
func isFlat(node *yaml.Node) bool {
	for _, k := range pathKeys {
		if v := lookup(node, k); v != nil && v.Kind == yaml.ScalarNode {
			return true
		}
	}
	return false
}

func entryFromMapping(node *yaml.Node) rawEntry {
	e := rawEntry{
		defaultDomainDir: scalarValue(node, "defaultDomainDir"),
		template:         firstNonEmpty(scalarValue(node, "template"), scalarValue(node, "defaultTemplate")),
		git:              scalarValue(node, "git"),
	}
	for _, k := range pathKeys {
		if v := scalarValue(node, k); v != "" {
			e.path = v
			break
		}
	}
	if d := lookup(node, "domains"); d != nil && d.Kind == yaml.MappingNode {
		e.domains = map[string]string{}
		for i := 0; i+1 < len(d.Content); i += 2 {
			if d.Content[i+1].Kind == yaml.ScalarNode {
				e.domains[d.Content[i].Value] = d.Content[i+1].Value
			}
		}
	}
	return e
}

func (e rawEntry) normalize(baseDir string, scope Scope, configPath string) NormalizedRepo {
	// Invalid values are reported by config check rather than failing the load.
	git, _ := gitmode.ParseOptional(e.git)
	r := NormalizedRepo{
		Name:             e.name,
		RawPath:          e.path,
		Domains:          e.domains,
		DefaultDomainDir: e.defaultDomainDir,
		Template:         e.template,
		Git:              git,
		RawGit:           e.git,
		Scope:            scope,
		ConfigPath:       configPath,
	}
	if e.path != "" {
		r.Root = pathutil.ResolvePath(e.path, baseDir)
	}
	return r
}

// keyedNode renders an entry in keyed form for writing.
func (e rawEntry) keyedNode() *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	put := func(k, v string) {
		if v == "" {
			return
		}
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Value: v},
		)
	}
	put("path", e.path)
	if len(e.domains) > 0 {
		keys := make([]string, 0, len(e.domains))
		for k := range e.domains {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range keys {
			d.Content = append(d.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: k},
				&yaml.Node{Kind: yaml.ScalarNode, Value: e.domains[k]},
			)
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: "domains"}, d)
	}
	put("defaultDomainDir", e.defaultDomainDir)
	put("template", e.template)
	put("git", e.git)
	return n
}

func lookup(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func scalarValue(node *yaml.Node, key string) string {
	v := lookup(node, key)
	if v == nil || v.Kind != yaml.ScalarNode || v.Tag == "!!null" {
		return ""
	}
	return v.Value
}
