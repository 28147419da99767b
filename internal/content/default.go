package content

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed default.json
var defaultJSON []byte

// defaultDoc is decoded once at init; Default hands out clones.
var defaultDoc = mustDecodeDefault()

func mustDecodeDefault() *Document {
	var doc Document
	if err := json.Unmarshal(defaultJSON, &doc); err != nil {
		panic(fmt.Sprintf("content: embedded default document is invalid: %v", err))
	}
	doc.normalize()
	return &doc
}

// Default returns a fresh copy of the compiled-in default document.
func Default() *Document {
	return defaultDoc.Clone()
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		// Document holds only strings, bools, numbers and slices of those.
		panic(fmt.Sprintf("content: marshal during clone: %v", err))
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("content: unmarshal during clone: %v", err))
	}
	out.normalize()
	return &out
}
