package domain

// Template is a site template: ordered sections plus a JSON data tree with one
// top-level node per section. List sections keep their entries under "items".
type Template struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Industry      string         `json:"industry"`
	Theme         string         `json:"theme"`
	SchemaVersion string         `json:"schema_version"`
	Sections      []string       `json:"sections"`
	Data          map[string]any `json:"data"`
}

// TemplateSummary is the catalog view of a template used for recommendations.
type TemplateSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Industry string   `json:"industry"`
	Sections []string `json:"sections"`
}

// Summary returns the catalog view of t.
func (t Template) Summary() TemplateSummary {
	return TemplateSummary{
		ID:       t.ID,
		Name:     t.Name,
		Industry: t.Industry,
		Sections: append([]string(nil), t.Sections...),
	}
}

// Section returns the data node of a section, nil when missing or not an object.
func (t Template) Section(key string) map[string]any {
	if t.Data == nil {
		return nil
	}
	node, _ := t.Data[key].(map[string]any)
	return node
}

// Items returns the list entries of a section node.
func Items(node map[string]any) []any {
	if node == nil {
		return nil
	}
	items, _ := node["items"].([]any)
	return items
}
