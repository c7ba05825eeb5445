package metrics

import (
	"errors"

	coremetrics "github.com/kilianp07/hems/core/metrics"
)

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordPass(coremetrics.PassEvent) error        { return nil }
func (NopSink) RecordModeChange(coremetrics.ModeChange) error { return nil }

// MultiSink fans events out to several sinks. Errors are joined, a failing
// sink never hides the others.
type MultiSink struct {
	sinks []coremetrics.PlanSink
}

func NewMultiSink(sinks ...coremetrics.PlanSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordPass(ev coremetrics.PassEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordPass(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordModeChange(ev coremetrics.ModeChange) error {
	var errs []error
	for _, s := range m.sinks {
		if r, ok := s.(coremetrics.ModeRecorder); ok {
			if err := r.RecordModeChange(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
