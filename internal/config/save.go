package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SaveUISettings rewrites the ui section of the config file in place.
// The rest of the file, including its comments, survives untouched because
// the edit happens on the parsed yaml.Node tree rather than on re-marshaled
// structs.
func SaveUISettings(configPath string, ui UIConfig) error {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	upsertSection(&doc, "ui", buildUINode(ui))

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

// upsertSection replaces the value under key at the document's top-level
// mapping, appending the key when absent. A missing file parses to a
// zero-kind node; that case gets a fresh document built around the section.
func upsertSection(doc *yaml.Node, key string, value *yaml.Node) {
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}

	if doc.Kind == 0 {
		*doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{{
				Kind:    yaml.MappingNode,
				Content: []*yaml.Node{keyNode, value},
			}},
		}
		return
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return
	}

	// Mapping nodes interleave key and value children.
	for i := 0; i < len(root.Content)-1; i += 2 {
		if root.Content[i].Value == key {
			root.Content[i+1] = value
			return
		}
	}
	root.Content = append(root.Content, keyNode, value)
}

// buildUINode creates a yaml.Node representing the ui mapping.
func buildUINode(ui UIConfig) *yaml.Node {
	node := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: "sidebar_width"},
			{Kind: yaml.ScalarNode, Value: strconv.Itoa(ui.SidebarWidth)},
			{Kind: yaml.ScalarNode, Value: "show_status_bar"},
			{Kind: yaml.ScalarNode, Value: strconv.FormatBool(ui.ShowStatusBar)},
		},
	}

	if ui.MarkdownStyle != "" {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "markdown_style"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: ui.MarkdownStyle},
		)
	}

	return node
}

// writeAtomic lands data at configPath through a temp file in the same
// directory, so a crash mid-write never leaves a half-written config behind.
func writeAtomic(configPath string, data []byte) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".fern.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
