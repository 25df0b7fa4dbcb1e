package queue

import (
	"slices"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status represents the lifecycle of a transcription task.
type Status string

const (
	StatusSkipped      Status = "skipped"
	StatusWaiting      Status = "waiting"
	StatusUnpacking    Status = "unpacking"
	StatusLoading      Status = "loading"
	StatusTranscribing Status = "transcribing"
	StatusDiarizing    Status = "diarizing"
	StatusEncrypting   Status = "encrypting"
	StatusReturning    Status = "returning"
	StatusFailed       Status = "failed"
	StatusCompleted    Status = "completed"
)

var allStatuses = []Status{
	StatusSkipped,
	StatusWaiting,
	StatusUnpacking,
	StatusLoading,
	StatusTranscribing,
	StatusDiarizing,
	StatusEncrypting,
	StatusReturning,
	StatusFailed,
	StatusCompleted,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusUnpacking:    {},
	StatusLoading:      {},
	StatusTranscribing: {},
	StatusDiarizing:    {},
	StatusEncrypting:   {},
	StatusReturning:    {},
}

// DIARIZING and ENCRYPTING are reserved: the table accepts them so a future
// stage can be made observable, but the pipeline never enters them today.
var transitions = map[Status][]Status{
	StatusWaiting:      {StatusUnpacking, StatusLoading, StatusFailed},
	StatusUnpacking:    {StatusLoading, StatusFailed},
	StatusLoading:      {StatusTranscribing, StatusFailed},
	StatusTranscribing: {StatusDiarizing, StatusReturning, StatusFailed},
	StatusDiarizing:    {StatusEncrypting, StatusReturning, StatusFailed},
	StatusEncrypting:   {StatusReturning, StatusFailed},
	StatusReturning:    {StatusCompleted, StatusFailed},
	StatusFailed:       {StatusWaiting},
	StatusCompleted:    {StatusWaiting},
}

var labelCaser = cases.Title(language.Und)

// AllStatuses returns every status in pipeline order.
func AllStatuses() []Status {
	return slices.Clone(allStatuses)
}

// ParseStatus converts a stored value back into a Status.
func ParseStatus(value string) (Status, bool) {
	status := Status(value)
	_, ok := statusSet[status]
	return status, ok
}

// Label is the title-cased display form, e.g. "Waiting".
func (s Status) Label() string {
	return labelCaser.String(string(s))
}

// IsProcessing reports whether a stage is currently running for the task.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// IsTerminal reports whether the pipeline is done with the task.
func (s Status) IsTerminal() bool {
	return s == StatusSkipped || s == StatusFailed || s == StatusCompleted
}

// CanTransition reports whether a stored task may move from one status to
// another. SKIPPED is derived and never stored, so nothing transitions into
// or out of it.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Options are the per-task settings a collaborator can change. Nil fields
// are unset and fall through to the session defaults when resolved.
type Options struct {
	// Models lists selected model keys; "diarize" enables diarization. A
	// non-nil empty list is an explicit choice of no models.
	Models      []string `json:"models"`
	MinSpeakers *int     `json:"min_speakers,omitempty"`
	MaxSpeakers *int     `json:"max_speakers,omitempty"`
	Prompt      *string  `json:"prompt,omitempty"`
}

// Merge returns o with every field set in over taking precedence. The result
// shares no memory with either input.
func (o Options) Merge(over Options) Options {
	merged := o.Clone()
	if over.Models != nil {
		merged.Models = slices.Clone(over.Models)
	}
	if over.MinSpeakers != nil {
		merged.MinSpeakers = clonePtr(over.MinSpeakers)
	}
	if over.MaxSpeakers != nil {
		merged.MaxSpeakers = clonePtr(over.MaxSpeakers)
	}
	if over.Prompt != nil {
		merged.Prompt = clonePtr(over.Prompt)
	}
	return merged
}

// Clone returns a deep copy of o.
func (o Options) Clone() Options {
	return Options{
		Models:      slices.Clone(o.Models),
		MinSpeakers: clonePtr(o.MinSpeakers),
		MaxSpeakers: clonePtr(o.MaxSpeakers),
		Prompt:      clonePtr(o.Prompt),
	}
}

// HasModel reports whether key is selected.
func (o Options) HasModel(key string) bool {
	return slices.Contains(o.Models, key)
}

// IsZero reports whether no option is set.
func (o Options) IsZero() bool {
	return o.Models == nil && o.MinSpeakers == nil && o.MaxSpeakers == nil && o.Prompt == nil
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	copied := *v
	return &copied
}

// Task is the stored state of one track's transcription.
type Task struct {
	Key          string
	Overrides    Options
	Status       Status
	ErrorMessage string
	RunID        string
	LogPath      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Resolved is a task with the session defaults applied.
type Resolved struct {
	Key     string
	Options Options
	Status  Status
}

// Resolve merges the task's overrides over defaults.
func (t Task) Resolve(defaults Options) Resolved {
	return Resolved{
		Key:     t.Key,
		Options: defaults.Merge(t.Overrides),
		Status:  t.Status,
	}
}

// EffectiveStatus derives the status a caller should see: a waiting task
// with no models to run reports StatusSkipped.
func EffectiveStatus(r Resolved) Status {
	if r.Status == StatusWaiting && len(r.Options.Models) == 0 {
		return StatusSkipped
	}
	return r.Status
}

// Summary counts tracks by effective status.
type Summary map[Status]int

// Total is the number of tracks counted.
func (s Summary) Total() int {
	total := 0
	for _, count := range s {
		total += count
	}
	return total
}
