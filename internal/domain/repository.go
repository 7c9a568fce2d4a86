package domain

import "context"

// GenerationOptions tunes a single content-model call.
type GenerationOptions struct {
	Temperature float64
	MaxTokens   int
	JSON        bool
}

// TextRequest is one call to the content-generation endpoint.
type TextRequest struct {
	Feature  string
	Prompt   string
	Model    string
	Options  GenerationOptions
	CallerID string
}

// TextGenerator is the content-generation endpoint.
type TextGenerator interface {
	Generate(ctx context.Context, req TextRequest) (string, error)
}

// ImageRequest is one call to the image-generation endpoint.
type ImageRequest struct {
	Prompt       string
	AspectRatio  string
	Style        string
	Resolution   string
	Model        string
	PersonPolicy string
	// RequestID groups the images of one run; Target names the slot the
	// image is for. Both only shape the stored object key.
	RequestID string
	Target    string
}

// ImageGenerator is the image-generation endpoint. It returns a public URL.
type ImageGenerator interface {
	Generate(ctx context.Context, req ImageRequest) (string, error)
}

// PromptTemplate is a stored prompt with double-brace placeholders.
type PromptTemplate struct {
	Key      string
	Template string
	ModelID  string
}

// PromptCatalog looks up prompt templates by key.
type PromptCatalog interface {
	Lookup(ctx context.Context, key string) (PromptTemplate, bool)
}

// ProgressStore persists the progress record of one owner.
type ProgressStore interface {
	Save(ctx context.Context, progress GenerationProgress) error
	Load(ctx context.Context) (*GenerationProgress, error)
	Clear(ctx context.Context) error
}

// TemplateStore resolves site templates.
type TemplateStore interface {
	Get(ctx context.Context, id string) (Template, error)
	List(ctx context.Context) ([]TemplateSummary, error)
}

// ProjectCreator persists a merged document and returns the project id.
type ProjectCreator interface {
	Create(ctx context.Context, draft ProjectDraft) (string, error)
}

// StoreProvisioner creates the e-commerce skeleton of a project.
type StoreProvisioner interface {
	Provision(ctx context.Context, projectID string, categories []Category) error
}

// Geocoder resolves a free-text address. ok is false when nothing matched.
type Geocoder interface {
	Lookup(ctx context.Context, address string) (Coordinates, bool, error)
}

// CallOutcome is the record emitted after every model call.
type CallOutcome struct {
	CallerID string
	ModelID  string
	Feature  string
	Success  bool
	Error    string
}

// CallLogger records model call outcomes. Implementations must not block the
// caller on failure.
type CallLogger interface {
	Record(ctx context.Context, outcome CallOutcome)
}

// NopCallLogger discards every outcome.
type NopCallLogger struct{}

func (NopCallLogger) Record(context.Context, CallOutcome) {}
