package domain

import "time"

// Phase enumerates the generation state machine states.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseContent    Phase = "content"
	PhaseImages     Phase = "images"
	PhaseFinalizing Phase = "finalizing"
	PhaseCompleted  Phase = "completed"
	PhaseError      Phase = "error"
)

// Terminal reports whether no further transition is possible within a run.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseError
}

var phaseRank = map[Phase]int{
	PhaseIdle:       0,
	PhaseContent:    1,
	PhaseImages:     2,
	PhaseFinalizing: 3,
	PhaseCompleted:  4,
}

// CanTransition reports whether from -> to is a legal move inside one run:
// one step forward along idle, content, images, finalizing, completed, or a
// jump to error from any non-terminal phase.
func CanTransition(from, to Phase) bool {
	if from.Terminal() {
		return false
	}
	if to == PhaseError {
		return true
	}
	fr, ok := phaseRank[from]
	if !ok {
		return false
	}
	tr, ok := phaseRank[to]
	if !ok {
		return false
	}
	return tr == fr+1
}

// ImageStatus enumerates the lifecycle of one planned image.
type ImageStatus string

const (
	ImageStatusPending    ImageStatus = "pending"
	ImageStatusGenerating ImageStatus = "generating"
	ImageStatusCompleted  ImageStatus = "completed"
	ImageStatusFailed     ImageStatus = "failed"
)

// ImageTask is one planned image generation request with its target field path.
type ImageTask struct {
	ID          string      `json:"id"`
	Section     string      `json:"section"`
	FieldPath   string      `json:"field_path"`
	Prompt      string      `json:"prompt"`
	AspectRatio string      `json:"aspect_ratio"`
	Style       string      `json:"style"`
	Priority    int         `json:"priority"`
	Status      ImageStatus `json:"status"`
	Attempts    int         `json:"attempts"`
	Error       string      `json:"error"`
	URL         string      `json:"url"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Resolved reports whether the task reached a final status.
func (t ImageTask) Resolved() bool {
	return t.Status == ImageStatusCompleted || t.Status == ImageStatusFailed
}

// GenerationProgress is the sole mutable state record of a generation run.
type GenerationProgress struct {
	RunID           string      `json:"run_id"`
	Phase           Phase       `json:"phase"`
	ContentProgress int         `json:"content_progress"`
	ImagesTotal     int         `json:"images_total"`
	ImagesCompleted int         `json:"images_completed"`
	AllImages       []ImageTask `json:"all_images"`
	CurrentImage    *ImageTask  `json:"current_image,omitempty"`
	ProjectID       string      `json:"project_id"`
	StartedAt       *time.Time  `json:"started_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	Error           string      `json:"error"`
}

// NewProgress returns an idle progress record.
func NewProgress() GenerationProgress {
	return GenerationProgress{Phase: PhaseIdle, AllImages: []ImageTask{}}
}

// Clone returns a deep copy so snapshots never alias the live record.
func (p GenerationProgress) Clone() GenerationProgress {
	out := p
	out.AllImages = make([]ImageTask, len(p.AllImages))
	for i, task := range p.AllImages {
		out.AllImages[i] = task.clone()
	}
	if p.CurrentImage != nil {
		cur := p.CurrentImage.clone()
		out.CurrentImage = &cur
	}
	out.StartedAt = cloneTime(p.StartedAt)
	out.CompletedAt = cloneTime(p.CompletedAt)
	return out
}

func (t ImageTask) clone() ImageTask {
	out := t
	out.StartedAt = cloneTime(t.StartedAt)
	out.CompletedAt = cloneTime(t.CompletedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
