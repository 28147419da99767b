package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SourceModulePrefix opens the source module the static site compiles as its
// default content.
const SourceModulePrefix = "export const defaultData = "

// SnapshotJSON returns the pretty-printed JSON backup of doc.
func SnapshotJSON(doc *Document) ([]byte, error) {
	return marshalPretty(doc)
}

// SourceModule returns doc as a single literal assignment, in the same
// format as the site's compiled-in default.
func SourceModule(doc *Document) ([]byte, error) {
	body, err := marshalPretty(doc)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(SourceModulePrefix) + len(body) + 2)
	buf.WriteString(SourceModulePrefix)
	buf.Write(body)
	buf.WriteString(";\n")
	return buf.Bytes(), nil
}

// ParseSourceModule extracts the JSON literal from a source module produced
// by SourceModule.
func ParseSourceModule(text []byte) ([]byte, error) {
	s := strings.TrimSpace(string(text))
	if !strings.HasPrefix(s, SourceModulePrefix) {
		return nil, &DecodeError{Cause: fmt.Errorf("missing %q prefix", strings.TrimSpace(SourceModulePrefix))}
	}
	s = strings.TrimPrefix(s, SourceModulePrefix)
	s = strings.TrimSuffix(strings.TrimSpace(s), ";")
	return []byte(s), nil
}

// marshalPretty indents with two spaces and leaves <, > and & unescaped so the
// output matches what a browser's JSON.stringify would write.
func marshalPretty(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
