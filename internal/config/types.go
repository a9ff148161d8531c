package config

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueKind is the coercion a column asks for. Unknown type names fall back
// to KindText so loosely specified configs keep working.
type ValueKind int

const (
	KindNone ValueKind = iota // no type configured, column is skipped
	KindDateTime
	KindInteger
	KindFloat
	KindText
)

// DocumentType describes one kind of CSV-bearing email: who sends it, what
// the subject looks like, and how its rows map onto a database table.
type DocumentType struct {
	Name             string       `yaml:"name"`
	Sender           string       `yaml:"sender"`
	SubjectPattern   PatternText  `yaml:"subject_pattern"`
	TableTemplate    string       `yaml:"table_template"`
	SavePathTemplate string       `yaml:"save_path_template"`
	Columns          []ColumnSpec `yaml:"columns"`

	subjectRe *regexp.Regexp
}

// SubjectRegexp returns the compiled subject pattern. Matching is anchored at
// the start of the subject and may stop before its end.
func (t *DocumentType) SubjectRegexp() *regexp.Regexp {
	return t.subjectRe
}

// Compile validates the type and compiles its subject pattern and datetime
// formats. Load calls it for every configured type; types built in code must
// call it before use. The returned strings are non-fatal warnings.
func (t *DocumentType) Compile() ([]string, error) {
	if t.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if t.Sender == "" {
		return nil, fmt.Errorf("type %q: sender is required", t.Name)
	}
	if t.SubjectPattern == "" {
		return nil, fmt.Errorf("type %q: subject_pattern is required", t.Name)
	}
	re, err := regexp.Compile(`\A(?:` + string(t.SubjectPattern) + `)`)
	if err != nil {
		return nil, fmt.Errorf("type %q: invalid subject_pattern: %w", t.Name, err)
	}
	t.subjectRe = re

	t.TableTemplate = strings.TrimSpace(t.TableTemplate)
	t.SavePathTemplate = strings.TrimSpace(t.SavePathTemplate)
	if t.TableTemplate == "" {
		return nil, fmt.Errorf("type %q: table_template is required", t.Name)
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("type %q: at least one column is required", t.Name)
	}

	var warnings []string
	fields := make(map[string]bool)
	for i := range t.Columns {
		col := &t.Columns[i]
		warn, err := col.compile()
		if err != nil {
			return nil, fmt.Errorf("type %q: columns[%d]: %w", t.Name, i, err)
		}
		if warn != "" {
			warnings = append(warnings, fmt.Sprintf("type %q: columns[%d]: %s", t.Name, i, warn))
		}
		name := col.FieldName()
		if fields[name] {
			warnings = append(warnings, fmt.Sprintf("type %q: field %q is mapped by more than one column; the last value wins", t.Name, name))
		}
		fields[name] = true
	}
	return warnings, nil
}

// ColumnSpec maps one CSV header cell onto a typed table column.
type ColumnSpec struct {
	CSVName string `yaml:"csv_name"`
	Field   string `yaml:"field"`  // table column name, defaults to csv_name
	Type    string `yaml:"type"`   // datetime, integer, float, string; empty skips the column
	Format  string `yaml:"format"` // strptime-style, datetime columns only

	layout string
}

// FieldName is the table column this CSV column lands in.
func (c *ColumnSpec) FieldName() string {
	if c.Field != "" {
		return c.Field
	}
	return c.CSVName
}

// TimeLayout is the Go layout translated from Format, empty when none is set.
func (c *ColumnSpec) TimeLayout() string {
	return c.layout
}

func (c *ColumnSpec) Kind() ValueKind {
	switch strings.ToLower(strings.TrimSpace(c.Type)) {
	case "":
		return KindNone
	case "datetime", "timestamp":
		return KindDateTime
	case "integer", "int", "bigint":
		return KindInteger
	case "float", "double", "real", "numeric":
		return KindFloat
	default:
		return KindText
	}
}

func (c *ColumnSpec) compile() (string, error) {
	if c.CSVName == "" {
		return "", fmt.Errorf("csv_name is required")
	}
	if c.Kind() == KindDateTime {
		if c.Format == "" {
			return fmt.Sprintf("datetime column %q has no format and will be skipped", c.CSVName), nil
		}
		layout, err := strptimeLayout(strings.TrimSpace(c.Format))
		if err != nil {
			return "", err
		}
		c.layout = layout
	}
	return "", nil
}

// PatternText is a regular expression written either as one YAML string or
// as a list of fragments that are concatenated, which keeps long patterns
// readable in config files.
type PatternText string

func (p *PatternText) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*p = PatternText(s)
		return nil
	case yaml.SequenceNode:
		var parts []string
		if err := value.Decode(&parts); err != nil {
			return err
		}
		*p = PatternText(strings.Join(parts, ""))
		return nil
	default:
		return fmt.Errorf("subject_pattern must be a string or a list of strings")
	}
}
