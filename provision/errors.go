package provision

import (
	"errors"
	"fmt"
)

// AbortReason classifies why a provisioning run stopped before Success.
// Every reason is terminal for the run: the conditions behind them only
// change across a reset, so there are no retries anywhere.
type AbortReason string

const (
	// InvalidSecurityMode: the security monitor is in its check state
	// or an undefined state; provisioning requires non-secure, trusted
	// or secure.
	InvalidSecurityMode AbortReason = "invalid-security-mode"

	// KeyLockedByHardware: ZMK_HWP is set, the key is owned by the
	// hardware programming mechanism and software writes are forbidden.
	KeyLockedByHardware AbortReason = "key-locked-by-hardware"

	// WriteLockedSoft: a soft lock covers the ZMK or master-key-select;
	// cleared only by a system reset.
	WriteLockedSoft AbortReason = "write-locked-soft"

	// WriteLockedHard: a hard lock covers the ZMK or master-key-select;
	// cleared only by a power-on reset.
	WriteLockedHard AbortReason = "write-locked-hard"

	// KeyVerificationFailed: the key register read back differently
	// from what was written. After an OR-only write this points at a
	// masking or locking inconsistency, not a transient fault.
	KeyVerificationFailed AbortReason = "key-verification-failed"
)

// AbortError is the terminal error of a provisioning run.
type AbortError struct {
	Step   string
	Reason AbortReason
	Detail string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("provisioning aborted at %s: %s: %s", e.Step, e.Reason, e.Detail)
}

// ReasonOf extracts the abort reason from an error chain, or "" if the
// error is not a provisioning abort.
func ReasonOf(err error) AbortReason {
	var abort *AbortError
	if errors.As(err, &abort) {
		return abort.Reason
	}
	return ""
}

// ErrRunInProgress is returned when Run is entered while another run
// holds the bank. The SNVS has no concurrent sessions; a second run
// would race against lock bits set by the first.
var ErrRunInProgress = errors.New("provisioning run already in progress on this bank")
