package models

// ProgressStatus is the tagged status of a Progress record.
type ProgressStatus string

const (
	ProgressQueued    ProgressStatus = "queued"
	ProgressRunning   ProgressStatus = "running"
	ProgressCompleted ProgressStatus = "completed"
	ProgressFailed    ProgressStatus = "failed"
)

// Progress is the unified status/progress surface polled by the HTTP API.
type Progress struct {
	Status           ProgressStatus `json:"status"`
	PercentComplete  int            `json:"progress"` // [0,100]
	Step             string         `json:"step,omitempty"`
	CurrentSection   string         `json:"current_section,omitempty"`
	TotalSections    int            `json:"total_sections,omitempty"`
	CompletedSections int           `json:"completed_sections,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// statusRank gives a total order so "status never regresses" can be
// enforced mechanically (spec.md §8), except that failed is reachable
// from any state.
var statusRank = map[ProgressStatus]int{
	ProgressQueued:    0,
	ProgressRunning:   1,
	ProgressCompleted: 2,
	ProgressFailed:    3,
}

// Apply merges next into the receiver, honoring the monotonic-progress
// and non-regressing-status invariants from spec.md §8. failed always
// wins regardless of rank; otherwise a lower-ranked update is rejected,
// and an update with a lower percent is applied with the current percent
// kept.
func (p *Progress) Apply(next Progress) {
	if next.Status == ProgressFailed {
		*p = next
		return
	}
	if statusRank[next.Status] < statusRank[p.Status] {
		return
	}
	if next.PercentComplete < p.PercentComplete && p.Status != ProgressFailed {
		next.PercentComplete = p.PercentComplete
	}
	*p = next
}
