package provision

import (
	"fmt"
	"log/slog"
)

// StepRecord describes one register mutation performed by the sequencer.
type StepRecord struct {
	Step     string
	Register string
	Before   uint32
	After    uint32
}

// Reporter is the diagnostics sink. The sequencer reports every register
// mutation, every guard decision, informational readouts, warnings, and
// the final outcome. No format is mandated; the slog implementation
// below is what the CLI uses, tests substitute a recorder.
type Reporter interface {
	Step(rec StepRecord)
	Guard(name string, passed bool, detail string)
	Note(msg string, args ...any)
	Warn(msg string, args ...any)
	Outcome(res *Result, err error)
}

// SlogReporter reports through a structured logger.
type SlogReporter struct {
	Log *slog.Logger
}

func (r *SlogReporter) Step(rec StepRecord) {
	r.Log.Info("register write",
		"step", rec.Step,
		"register", rec.Register,
		"before", hex32(rec.Before),
		"after", hex32(rec.After),
	)
}

func (r *SlogReporter) Guard(name string, passed bool, detail string) {
	if passed {
		r.Log.Info("guard passed", "guard", name, "detail", detail)
	} else {
		r.Log.Error("guard failed", "guard", name, "detail", detail)
	}
}

func (r *SlogReporter) Note(msg string, args ...any) {
	r.Log.Info(msg, args...)
}

func (r *SlogReporter) Warn(msg string, args ...any) {
	r.Log.Warn(msg, args...)
}

func (r *SlogReporter) Outcome(res *Result, err error) {
	if err != nil {
		r.Log.Error("provisioning aborted", "err", err)
		return
	}
	r.Log.Info("provisioning complete",
		"security_mode", res.Mode.String(),
		"zeroization_confirmed", res.ZeroizationConfirmed,
	)
}

type nopReporter struct{}

func (nopReporter) Step(StepRecord)            {}
func (nopReporter) Guard(string, bool, string) {}
func (nopReporter) Note(string, ...any)        {}
func (nopReporter) Warn(string, ...any)        {}
func (nopReporter) Outcome(*Result, error)     {}

func hex32(v uint32) string {
	return fmt.Sprintf("0x%08x", v)
}
