// Package matching evaluates the structural checks behind the probe's JSON
// body expectations: JSONPath queries (via ojg) and boolean expressions (via
// expr-lang). Both operate on a document already normalised to generic JSON
// values (map[string]any, []any, float64, string, bool, nil).
package matching
