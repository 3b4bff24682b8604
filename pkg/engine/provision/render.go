package provision

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/DrSkyle/snipesync/pkg/fieldmap"
)

// RenderConfig writes the defaults and field ids as a YAML block ready to paste
// into the config file. Columns are emitted only where the registry column
// differs from the derived one.
func RenderConfig(w io.Writer, res Result, statusID int) error {
	root := &yaml.Node{Kind: yaml.MappingNode}

	defaults := &yaml.Node{Kind: yaml.MappingNode}
	addInt(defaults, "category_id", res.CategoryID)
	addInt(defaults, "model_id", res.ModelID)
	if statusID > 0 {
		addInt(defaults, "status_id", statusID)
	}
	addMap(root, "defaults", defaults)

	fields := &yaml.Node{Kind: yaml.MappingNode}
	columns := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range res.Fields {
		if f.Err != nil || f.ID <= 0 {
			continue
		}
		addInt(fields, string(f.Key), f.ID)
		if f.Column != "" && f.Column != fieldmap.ColumnName(f.Name, f.ID) {
			addStr(columns, string(f.Key), f.Column)
		}
	}
	addMap(root, "fields", fields)
	if len(columns.Content) > 0 {
		addMap(root, "columns", columns)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// RenderSummary writes one "Name: ID=<id>, Column=<column>" line per field.
func RenderSummary(w io.Writer, res Result) error {
	for _, f := range res.Fields {
		var err error
		if f.Err != nil {
			_, err = fmt.Fprintf(w, "%s: FAILED (%v)\n", f.Name, f.Err)
		} else {
			_, err = fmt.Fprintf(w, "%s: ID=%d, Column=%s\n", f.Name, f.ID, f.Column)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func addMap(parent *yaml.Node, key string, value *yaml.Node) {
	parent.Content = append(parent.Content, scalar(key, "!!str"), value)
}

func addInt(parent *yaml.Node, key string, v int) {
	parent.Content = append(parent.Content, scalar(key, "!!str"), scalar(strconv.Itoa(v), "!!int"))
}

func addStr(parent *yaml.Node, key, v string) {
	parent.Content = append(parent.Content, scalar(key, "!!str"), scalar(v, "!!str"))
}

func scalar(v, tag string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v}
}
