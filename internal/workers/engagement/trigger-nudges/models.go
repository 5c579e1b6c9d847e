// internal/workers/engagement/trigger-nudges/models.go
package triggernudges

import (
	"time"

	"event-matchmaker/internal/models"
)

type Input struct {
	Mode   string     `json:"mode,omitempty"` // "compute" or "trigger" (default)
	DryRun bool       `json:"dryRun"`
	At     *time.Time `json:"at,omitempty"` // compute mode only
}

type Output struct {
	DryRun     bool           `json:"dryRun"`
	TotalDue   int            `json:"totalDue"`
	ToDispatch int            `json:"toDispatch"`
	Dispatched int            `json:"dispatched"`
	Failed     int            `json:"failed"`
	Nudges     []models.Nudge `json:"nudges"`
}

const (
	ModeCompute = "compute"
	ModeTrigger = "trigger"
)
