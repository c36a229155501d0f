package waterfall

import "github.com/sells-group/contact-enricher/internal/waterfall/provider"

// State is the progress of one enrichment attempt.
type State string

const (
	StateSeekName  State = "SEEK_NAME"
	StateSeekEmail State = "SEEK_EMAIL"
	StateSeekPhone State = "SEEK_PHONE"
	StateDone      State = "DONE"
	StateFailed    State = "FAILED"
)

// Field is a resolved value and the provider that supplied it.
type Field struct {
	Value  string `json:"value,omitempty"`
	Source string `json:"source,omitempty"`
}

// Set reports whether the field holds a value.
func (f Field) Set() bool { return f.Value != "" }

// Step records one provider consultation.
type Step struct {
	Stage    string `json:"stage"`
	Provider string `json:"provider"`
	Found    bool   `json:"found"`
}

// Result is the outcome of enriching one domain.
type Result struct {
	Domain   string `json:"domain"`
	Name     Field  `json:"name"`
	Email    Field  `json:"email"`
	Phone    Field  `json:"phone"`
	Verified bool   `json:"verified"`
	State    State  `json:"state"`
	Steps    []Step `json:"steps"`
}

// Done reports whether both name and email were resolved. It is the only
// success criterion callers should use.
func (r *Result) Done() bool {
	return r.State == StateDone && r.Name.Set() && r.Email.Set()
}

// HasAny reports whether any contact field was resolved.
func (r *Result) HasAny() bool {
	return r.Name.Set() || r.Email.Set() || r.Phone.Set()
}

// set writes value into f once. Later writes are ignored.
func set(f *Field, value, source string) bool {
	if f.Set() || value == "" {
		return false
	}
	f.Value = value
	f.Source = source
	return true
}

func (r *Result) step(stage string, p provider.Provider, found bool) {
	r.Steps = append(r.Steps, Step{Stage: stage, Provider: p.Name(), Found: found})
}
