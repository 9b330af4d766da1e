package types

import "time"

// Clip task statuses, as persisted.
const (
	ClipTaskStatusQueued    = "queued"
	ClipTaskStatusRunning   = "running"
	ClipTaskStatusSucceeded = "succeeded"
	ClipTaskStatusFailed    = "failed"
	ClipTaskStatusCanceled  = "canceled"
)

// Clip run statuses, derived from the task counters.
const (
	ClipRunStatusRunning   = "running"
	ClipRunStatusCompleted = "completed"
	ClipRunStatusPartial   = "partial"
	ClipRunStatusFailed    = "failed"
)

// ClipRun is one submission of a planned batch.
type ClipRun struct {
	Id         uint64           `json:"-" gorm:"primaryKey;autoIncrement"`
	RunId      string           `json:"run_id" gorm:"uniqueIndex;not null"`
	Query      string           `json:"query"`
	ResultJSON string           `json:"-" gorm:"type:text"`
	OutputDir  string           `json:"output_dir"`
	Status     string           `json:"status" gorm:"index"`
	Total      int              `json:"total"`
	Succeeded  int              `json:"succeeded"`
	Failed     int              `json:"failed"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Tasks      []ClipTaskRecord `json:"tasks,omitempty" gorm:"foreignKey:RunId;references:RunId;constraint:OnDelete:CASCADE"`
}

// ClipTaskRecord is the persisted state of one clip task of a run.
type ClipTaskRecord struct {
	Id         uint64    `json:"-" gorm:"primaryKey;autoIncrement"`
	RunId      string    `json:"run_id" gorm:"uniqueIndex:idx_run_task;not null"`
	TaskIndex  int       `json:"index" gorm:"uniqueIndex:idx_run_task"`
	Ordinal    int       `json:"ordinal"`
	Kind       string    `json:"kind"`
	Gram       string    `json:"gram"`
	Source     string    `json:"source"`
	Start      float64   `json:"start"`
	End        float64   `json:"end"`
	Output     string    `json:"output"`
	Status     string    `json:"status" gorm:"index"`
	FailReason string    `json:"fail_reason,omitempty"`
	Attempts   int       `json:"attempts"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Terminal reports whether the task has finished, successfully or not.
func (t ClipTaskRecord) Terminal() bool {
	switch t.Status {
	case ClipTaskStatusSucceeded, ClipTaskStatusFailed, ClipTaskStatusCanceled:
		return true
	default:
		return false
	}
}

// Done reports whether every task of the run has finished.
func (r ClipRun) Done() bool {
	return r.Succeeded+r.Failed >= r.Total
}

// DeriveStatus computes the run status from its counters.
func (r ClipRun) DeriveStatus() string {
	switch {
	case !r.Done():
		return ClipRunStatusRunning
	case r.Failed == 0:
		return ClipRunStatusCompleted
	case r.Succeeded == 0:
		return ClipRunStatusFailed
	default:
		return ClipRunStatusPartial
	}
}
