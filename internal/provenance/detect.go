package provenance

import (
	"context"
	"errors"
	"os"
)

const (
	ActionExport = "export"
	ActionSkip   = "skip"

	ReasonForced        = "forced"
	ReasonNew           = "no previous export"
	ReasonConfigChanged = "config changed"
	ReasonInputChanged  = "edit plan changed"
	ReasonOutputMissing = "output missing"
	ReasonUpToDate      = "up to date"
)

// Decision says whether an output needs exporting again.
type Decision struct {
	Action string
	Reason string
	Prior  *Record
}

// Decide compares the current plan and config hashes with the last
// successful export of output.
func (s *Store) Decide(ctx context.Context, output, planHash, configHash string, force bool) (Decision, error) {
	if force {
		return Decision{Action: ActionExport, Reason: ReasonForced}, nil
	}
	prior, err := s.LatestSuccess(ctx, output)
	if errors.Is(err, ErrNotFound) {
		return Decision{Action: ActionExport, Reason: ReasonNew}, nil
	}
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Action: ActionExport, Prior: &prior}
	switch {
	case prior.ConfigHash != configHash:
		d.Reason = ReasonConfigChanged
	case prior.PlanHash != planHash:
		d.Reason = ReasonInputChanged
	default:
		if _, err := os.Stat(output); os.IsNotExist(err) {
			d.Reason = ReasonOutputMissing
		} else {
			d.Action = ActionSkip
			d.Reason = ReasonUpToDate
		}
	}
	return d, nil
}
