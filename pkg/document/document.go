package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Required section names. Every document returned by the store carries all of
// them.
const (
	SectionHome     = "home"
	SectionContact  = "contact"
	SectionStudio   = "studio"
	SectionWork     = "work"
	SectionBlog     = "blog"
	SectionNav      = "nav"
	SectionMetadata = "metadata"
)

// RequiredSections lists the top-level keys a complete document must contain,
// in canonical order.
var RequiredSections = []string{
	SectionHome,
	SectionContact,
	SectionStudio,
	SectionWork,
	SectionBlog,
	SectionNav,
	SectionMetadata,
}

// ErrNotObject is returned by Parse when the input is valid JSON but not a
// JSON object.
var ErrNotObject = errors.New("document is not a JSON object")

// Document is the whole site content: a mapping of section names to raw JSON
// values. Required sections have typed views (see Home, Nav, Metadata); any
// other section is kept verbatim so documents written by newer editors
// survive a round trip.
//
// The zero value is an empty document ready for use.
type Document struct {
	sections map[string]json.RawMessage
}

// New returns an empty document.
func New() *Document {
	return &Document{sections: map[string]json.RawMessage{}}
}

// Parse decodes data into a Document. Syntax errors are returned as is;
// valid JSON that is not an object yields ErrNotObject.
func Parse(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document: %w", ErrNotObject)
	}
	if !json.Valid(trimmed) {
		// Run the decoder to get a positioned syntax error.
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("invalid json: %w", ErrNotObject)
	}
	if trimmed[0] != '{' {
		return nil, ErrNotObject
	}
	d := New()
	if err := json.Unmarshal(trimmed, &d.sections); err != nil {
		return nil, err
	}
	return d, nil
}

// FromValue converts any JSON-marshalable value (typically a
// map[string]any decoded by a caller) into a Document.
func FromValue(v any) (*Document, error) {
	if d, ok := v.(*Document); ok {
		return d.Clone(), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return Parse(data)
}

// Has reports whether the section exists and is not JSON null.
func (d *Document) Has(name string) bool {
	if d == nil {
		return false
	}
	raw, ok := d.sections[name]
	return ok && !isNull(raw)
}

// Section returns the raw JSON of a section.
func (d *Document) Section(name string) (json.RawMessage, bool) {
	if !d.Has(name) {
		return nil, false
	}
	return slices.Clone(d.sections[name]), true
}

// DecodeSection unmarshals a section into v.
func (d *Document) DecodeSection(name string, v any) error {
	raw, ok := d.Section(name)
	if !ok {
		return &MissingSectionsError{Sections: []string{name}}
	}
	return json.Unmarshal(raw, v)
}

// SetSection replaces a section with the JSON encoding of v.
func (d *Document) SetSection(name string, v any) error {
	var raw json.RawMessage
	switch val := v.(type) {
	case json.RawMessage:
		if !json.Valid(val) {
			return fmt.Errorf("section %q: invalid json", name)
		}
		raw = slices.Clone(val)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("section %q: %w", name, err)
		}
		raw = b
	}
	if d.sections == nil {
		d.sections = map[string]json.RawMessage{}
	}
	d.sections[name] = raw
	return nil
}

// Delete removes a section.
func (d *Document) Delete(name string) {
	delete(d.sections, name)
}

// Names returns the section names in sorted order.
func (d *Document) Names() []string {
	if d == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(d.sections))
}

// Missing returns the required sections that are absent or null, in
// canonical order.
func (d *Document) Missing() []string {
	var out []string
	for _, name := range RequiredSections {
		if !d.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := New()
	if d == nil {
		return out
	}
	for k, v := range d.sections {
		out.sections[k] = slices.Clone(v)
	}
	return out
}

// Equal reports whether both documents hold structurally equal JSON.
// Formatting and key order inside sections are ignored.
func (d *Document) Equal(other *Document) bool {
	a, errA := d.Value()
	b, errB := other.Value()
	if errA != nil || errB != nil {
		return false
	}
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return bytes.Equal(ab, bb)
}

// Value decodes the document into plain Go values.
func (d *Document) Value() (map[string]any, error) {
	data, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Bytes returns the pretty-printed encoding used on disk: two-space
// indentation and a trailing newline.
func (d *Document) Bytes() ([]byte, error) {
	data, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler. Keys are emitted in sorted order.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil || d.sections == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.sections)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	d.sections = parsed.sections
	return nil
}

// mergeOver returns a copy of base with every section of top laid over it.
// Null sections in top do not shadow base.
func mergeOver(base, top *Document) *Document {
	out := base.Clone()
	for name, raw := range top.sections {
		if isNull(raw) && out.Has(name) {
			continue
		}
		out.sections[name] = slices.Clone(raw)
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
