package content

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// errNotObject is the DecodeError cause for top-level JSON that is not an object.
var errNotObject = errors.New("document must be a JSON object")

// MergeWithDefaults overlays a partial document onto the compiled-in default.
// Each top-level section present in partial replaces the default's section
// wholesale; absent sections keep their default value and unknown keys are
// ignored. A JSON null document merges to the default unchanged.
func MergeWithDefaults(partial []byte) (*Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(partial, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &DecodeError{Cause: errNotObject}
		}
		return nil, &DecodeError{Cause: err}
	}

	doc := Default()
	for _, name := range SectionNames() {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if err := doc.SetSection(name, raw); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// NewProjectID returns a creation-time based project id that does not
// collide with any project already in existing.
func NewProjectID(now time.Time, existing []Project) string {
	base := "project-" + strconv.FormatInt(now.UnixMilli(), 10)
	taken := make(map[string]bool, len(existing))
	for _, p := range existing {
		taken[p.ID] = true
	}

	id := base
	for n := 2; taken[id]; n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	return id
}
