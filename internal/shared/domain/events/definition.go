package events

import "strings"

// CodePrefix is prepended to every event name before it is stored or sent.
const CodePrefix = "com.adobe.commerce."

// Type markers carried by the first segment of an event name.
const (
	TypePlugin   = "plugin"
	TypeObserver = "observer"
)

// Rule is a single field predicate attached to an event definition.
type Rule struct {
	Field    string `json:"field" yaml:"field"`
	Operator string `json:"operator" yaml:"operator"`
	Value    string `json:"value" yaml:"value"`
}

// Definition describes one outbound event in the catalog.
//
// Name is the catalog key. When Parent is set, the definition is an alias
// that fires on the parent's occurrences with its own fields and rules.
type Definition struct {
	Name     string
	Parent   string
	Fields   []string
	Rules    []Rule
	Enabled  bool
	Optional bool
}

// IsBasedOn reports whether the definition fires for a raw occurrence of code.
func (d *Definition) IsBasedOn(code string) bool {
	return (code == d.Name && d.Parent == "") || code == d.Parent
}

// SourceCode returns the code the definition is triggered by: the parent
// when set, otherwise its own name.
func (d *Definition) SourceCode() string {
	if d.Parent != "" {
		return d.Parent
	}
	return d.Name
}

// HasRules reports whether the definition carries at least one rule.
func (d *Definition) HasRules() bool {
	return len(d.Rules) > 0
}

// StripPrefix removes the commerce prefix from code. Codes without the
// prefix are returned unchanged.
func StripPrefix(code string) string {
	return strings.ReplaceAll(code, CodePrefix, "")
}

// WithPrefix returns name with the commerce prefix.
func WithPrefix(name string) string {
	return CodePrefix + name
}

// SplitType splits a prefix-free code into its type marker and the remainder.
// "plugin.catalog_product_save" yields ("plugin", "catalog_product_save").
func SplitType(code string) (string, string) {
	kind, rest, found := strings.Cut(code, ".")
	if !found {
		return kind, ""
	}
	return kind, rest
}
