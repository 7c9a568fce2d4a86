package domain

// NavItem is one entry of the generated site navigation.
type NavItem struct {
	Label  string `json:"label"`
	Anchor string `json:"anchor"`
}

// Coordinates is a geocoded position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MergedDocument is the final site document produced at finalizing.
type MergedDocument struct {
	TemplateID string          `json:"template_id"`
	Locale     string          `json:"locale"`
	Theme      string          `json:"theme"`
	Data       map[string]any  `json:"data"`
	Visibility map[string]bool `json:"visibility"`
	Navigation []NavItem       `json:"navigation"`
}

// ProjectDraft is handed to the project-creation collaborator.
type ProjectDraft struct {
	OwnerID    string         `json:"owner_id"`
	RunID      string         `json:"run_id"`
	Name       string         `json:"name"`
	Document   MergedDocument `json:"document"`
	Categories []Category     `json:"categories"`
}
