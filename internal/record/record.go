// Package record encodes and decodes the on-disk item format: a YAML
// metadata block between --- delimiters followed by a free-text body.
package record

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is the generic shape of an item file: a flat metadata map (scalars
// and string arrays) plus the body text.
type Record struct {
	Meta map[string]any
	Body string
}

// Field is one metadata entry in declaration order. Encoding preserves this
// order so files stay stable across rewrites.
type Field struct {
	Key   string
	Value any
}

// Encode renders the metadata block followed by the body.
func Encode(fields []Field, body string) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fields {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: f.Key}
		valNode := &yaml.Node{}
		if err := valNode.Encode(f.Value); err != nil {
			return nil, fmt.Errorf("record: encode %s: %w", f.Key, err)
		}
		mapping.Content = append(mapping.Content, keyNode, valNode)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return nil, fmt.Errorf("record: encode metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("record: close encoder: %w", err)
	}
	buf.WriteString("---\n")
	// The body is written verbatim so it reads back byte-identical.
	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(body)
	}
	return buf.Bytes(), nil
}

// Decode separates the YAML metadata block (between leading --- delimiters)
// from the body. A file without a metadata block decodes to an empty Meta
// with the entire content as body.
func Decode(data []byte) (*Record, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return &Record{Body: string(data)}, nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter; treat everything as body.
		return &Record{Body: string(data)}, nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var meta map[string]any
	if err := yaml.Unmarshal(yamlBlock, &meta); err != nil {
		return nil, fmt.Errorf("record: parse metadata: %w", err)
	}

	return &Record{Meta: meta, Body: body}, nil
}

// StringValue returns a metadata value as a string, tolerating absence.
func (r *Record) StringValue(key string) string {
	if r.Meta == nil {
		return ""
	}
	if s, ok := r.Meta[key].(string); ok {
		return s
	}
	return ""
}

// StringsValue returns a metadata value as a string slice, tolerating
// absence and scalar-vs-array drift in hand-edited files.
func (r *Record) StringsValue(key string) []string {
	if r.Meta == nil {
		return nil
	}
	switch v := r.Meta[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// IntValue returns a metadata value as an int64, tolerating absence.
func (r *Record) IntValue(key string) int64 {
	if r.Meta == nil {
		return 0
	}
	switch v := r.Meta[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}
