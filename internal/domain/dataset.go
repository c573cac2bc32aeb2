package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DatasetMatch is a dataset ranked against a research question.
// Score is conventionally in [0,1] but is not clamped.
type DatasetMatch struct {
	Score    float64         `json:"score"`
	Metadata DatasetMetadata `json:"metadata"`
}

// DatasetMetadata describes a published dataset.
type DatasetMetadata struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Organization     string   `json:"organization,omitempty"`
	MetadataCreated  string   `json:"metadata_created,omitempty"`
	MetadataModified string   `json:"metadata_modified,omitempty"`
	City             string   `json:"city,omitempty"`
	State            string   `json:"state,omitempty"`
	Country          string   `json:"country,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Groups           []string `json:"groups,omitempty"`
	URL              string   `json:"url,omitempty"`
	Author           string   `json:"author,omitempty"`
	Fields           FieldMap `json:"fields,omitempty"`
}

// Location joins the non-empty city, state and country parts.
func (m DatasetMetadata) Location() string {
	out := ""
	for _, part := range []string{m.City, m.State, m.Country} {
		if part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}

// FieldKind is the type tag of a field summary.
type FieldKind string

const (
	FieldNumeric FieldKind = "Numeric"
	FieldString  FieldKind = "String"
	FieldDate    FieldKind = "Date"
)

// FieldSummary is a per-field statistical summary: NumericField, StringField,
// DateField, or OtherField for a type tag this client does not know.
type FieldSummary interface {
	Kind() FieldKind
	Stats() FieldStats
	isFieldSummary()
}

// FieldStats are the counts every summary carries. Count is the total number
// of observed rows when the server reports it, zero otherwise.
type FieldStats struct {
	Type        FieldKind `json:"type"`
	Name        string    `json:"name"`
	UniqueCount int       `json:"unique_count"`
	NullCount   int       `json:"null_count"`
	Count       int       `json:"count,omitempty"`
}

// NumericField summarizes a numeric column.
type NumericField struct {
	FieldStats
	Mean         float64 `json:"mean"`
	Std          float64 `json:"std"`
	Min          float64 `json:"quantile_0_min"`
	Q25          float64 `json:"quantile_25"`
	Median       float64 `json:"quantile_50_median"`
	Q75          float64 `json:"quantile_75"`
	Max          float64 `json:"quantile_100_max"`
	Distribution string  `json:"distribution"`
}

// StringField summarizes a text column.
type StringField struct {
	FieldStats
}

// DateField summarizes a date column; values are kept as the server's strings.
type DateField struct {
	FieldStats
	Min  string `json:"min"`
	Max  string `json:"max"`
	Mean string `json:"mean"`
}

// OtherField keeps the common counts of a summary with an unknown type tag.
type OtherField struct {
	FieldStats
}

func (f NumericField) Kind() FieldKind   { return FieldNumeric }
func (f NumericField) Stats() FieldStats { return f.FieldStats }
func (NumericField) isFieldSummary()     {}

func (f StringField) Kind() FieldKind   { return FieldString }
func (f StringField) Stats() FieldStats { return f.FieldStats }
func (StringField) isFieldSummary()     {}

func (f DateField) Kind() FieldKind   { return FieldDate }
func (f DateField) Stats() FieldStats { return f.FieldStats }
func (DateField) isFieldSummary()     {}

func (f OtherField) Kind() FieldKind   { return f.Type }
func (f OtherField) Stats() FieldStats { return f.FieldStats }
func (OtherField) isFieldSummary()     {}

// FieldMap maps a field name to its summary.
type FieldMap map[string]FieldSummary

// UnmarshalJSON decodes each summary by its type tag. Summaries with an
// unknown tag decode as OtherField.
func (m *FieldMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*m = nil
		return nil
	}
	out := make(FieldMap, len(raw))
	for name, msg := range raw {
		summary, err := decodeFieldSummary(msg)
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = summary
	}
	*m = out
	return nil
}

// Unknown returns the names of fields whose type tag is not known, in
// lexical order.
func (m FieldMap) Unknown() []string {
	var names []string
	for _, name := range m.Names() {
		if _, ok := m[name].(OtherField); ok {
			names = append(names, name)
		}
	}
	return names
}

// Names returns the field names in lexical order.
func (m FieldMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decodeFieldSummary(msg json.RawMessage) (FieldSummary, error) {
	var tag struct {
		Type FieldKind `json:"type"`
	}
	if err := json.Unmarshal(msg, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case FieldNumeric:
		var f NumericField
		if err := json.Unmarshal(msg, &f); err != nil {
			return nil, err
		}
		return f, nil
	case FieldString:
		var f StringField
		if err := json.Unmarshal(msg, &f); err != nil {
			return nil, err
		}
		return f, nil
	case FieldDate:
		var f DateField
		if err := json.Unmarshal(msg, &f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		var f OtherField
		if err := json.Unmarshal(msg, &f); err != nil {
			return nil, err
		}
		return f, nil
	}
}
