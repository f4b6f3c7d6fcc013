package provision

import (
	"fmt"

	"go.uber.org/atomic"

	"github.com/ruteri/snvs-zmk-provisioner/snvs"
)

// Sequencer drives one register bank through the ZMK provisioning
// sequence. It owns the bank exclusively for the duration of a run.
type Sequencer struct {
	bank snvs.RegisterBank
	cfg  *Config
	rep  Reporter
	busy atomic.Bool
}

// Result is the terminal state of a successful run. An aborted run
// returns a nil Result and an *AbortError.
type Result struct {
	// Mode is the security monitor state observed at CheckMode.
	Mode snvs.SecurityMode

	// ZeroizationConfirmed reports whether the key register read back
	// zero after the read lock was set. False is a warning, not a
	// failure: the lock state is already committed and cannot be
	// undone, so the run still counts as successful.
	ZeroizationConfirmed bool
}

// New builds a sequencer for one run. The config is validated here so a
// bad config never touches a register.
func New(bank snvs.RegisterBank, cfg *Config, rep Reporter) (*Sequencer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if rep == nil {
		rep = nopReporter{}
	}
	return &Sequencer{bank: bank, cfg: cfg, rep: rep}, nil
}

// Run executes the provisioning sequence: identification readout, the
// four guards, then the committed write path. Steps are strictly
// ordered and never revisited; each later step's precondition is
// established by an earlier step's postcondition.
//
// Run cannot be cancelled. Once WriteKey has executed the sequence must
// reach its end, or the part is left partially locked in a
// non-reproducible state; there is no rollback at the hardware level.
// Run is serialized per Sequencer; an overlapping call returns
// ErrRunInProgress.
func (s *Sequencer) Run() (*Result, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.busy.Store(false)

	// Init: identification and pre-run state, informational only.
	s.rep.Note("SNVS identification",
		"hpvidr1", hex32(s.bank.Read(snvs.RegHPVIDR1)),
		"hpvidr2", hex32(s.bank.Read(snvs.RegHPVIDR2)),
		"ip_id", fmt.Sprintf("0x%x", snvs.FieldIPID.Read(s.bank)),
		"major_rev", snvs.FieldMajorRev.Read(s.bank),
		"minor_rev", snvs.FieldMinorRev.Read(s.bank),
	)
	s.rep.Note("pre-run state",
		"hplr", hex32(s.bank.Read(snvs.RegHPLR)),
		"lplr", hex32(s.bank.Read(snvs.RegLPLR)),
		"zmk", hex32(s.bank.Read(snvs.RegLPZMKR0)),
	)

	// CheckMode: the security monitor must be in a functional state.
	mode, err := checkSecurityMode(s.bank)
	if err != nil {
		return s.abort("CheckMode", err)
	}
	s.rep.Guard("CheckMode", true, "security monitor in "+mode.String()+" state")

	// ArmPowerGlitchDetector: seed the detector and clear any recorded
	// glitch. Unconditional once the mode check passed.
	s.set("ArmPowerGlitchDetector", snvs.RegLPPGDR, snvs.PowerGlitchValue)
	s.setField("ArmPowerGlitchDetector", snvs.FieldPowerGlitch)

	// CheckHardwareProgramming.
	if err := checkHardwareProgramming(s.bank); err != nil {
		return s.abort("CheckHardwareProgramming", err)
	}
	s.rep.Guard("CheckHardwareProgramming", true, "ZMK_HWP clear, software programming allowed")

	// CheckLocks: soft locks first, then hard locks.
	if err := checkSoftLocks(s.bank); err != nil {
		return s.abort("CheckLocks", err)
	}
	s.rep.Guard("CheckLocks", true, "soft locks clear")
	if err := checkHardLocks(s.bank); err != nil {
		return s.abort("CheckLocks", err)
	}
	s.rep.Guard("CheckLocks", true, "hard locks clear")

	// WriteKey. From here on the run is committed and must reach the
	// end of the sequence.
	s.set("WriteKey", snvs.RegLPZMKR0, s.cfg.KeyValue)

	// VerifyKey: exact read-back before any read lock can hide the
	// register. A mismatch after an OR-only write is a masking or
	// locking inconsistency, never a transient fault, so no retry.
	if got := s.bank.Read(snvs.RegLPZMKR0); got != s.cfg.KeyValue {
		err := &AbortError{
			Step:   "VerifyKey",
			Reason: KeyVerificationFailed,
			Detail: fmt.Sprintf("wrote %s, read back %s", hex32(s.cfg.KeyValue), hex32(got)),
		}
		return s.abort("VerifyKey", err)
	}
	s.rep.Guard("VerifyKey", true, "key register matches "+hex32(s.cfg.KeyValue))

	// ActivateKey: mark the key usable by the crypto engine.
	s.setField("ActivateKey", snvs.FieldZMKValid)

	// EnableErrorCorrection: hardware-optional; a part without ECC
	// ignores the bit and the codeword readout is informational.
	s.setField("EnableErrorCorrection", snvs.FieldZMKECCEnable)
	s.rep.Note("ZMK ECC codeword", "ecc_value", fmt.Sprintf("0x%03x", snvs.FieldZMKECCValue.Read(s.bank)))

	// ApplyWriteReadLocks: read lock first, then write lock, in the
	// domain the reset policy selects.
	if s.cfg.ResetDomain == ResetPowerOn {
		s.setField("ApplyWriteReadLocks", snvs.FieldZMKReadHardLock)
		s.setField("ApplyWriteReadLocks", snvs.FieldZMKWriteHardLock)
	} else {
		s.setField("ApplyWriteReadLocks", snvs.FieldZMKReadSoftLock)
		s.setField("ApplyWriteReadLocks", snvs.FieldZMKWriteSoftLock)
	}

	// AwaitZeroization: the hardware zeroizes the now read-locked key
	// register asynchronously; give it a bounded spin, then check.
	busySpin(s.cfg.ZeroizeSpinCount)
	res := &Result{Mode: mode, ZeroizationConfirmed: true}
	if zmk := s.bank.Read(snvs.RegLPZMKR0); zmk != 0 {
		res.ZeroizationConfirmed = false
		s.rep.Warn("zeroization not confirmed",
			"zmk", hex32(zmk),
			"spin_count", s.cfg.ZeroizeSpinCount,
			"hint", "key register still readable, consider raising the spin count",
		)
	} else {
		s.rep.Note("zeroization confirmed", "register", snvs.RegName(snvs.RegLPZMKR0))
	}

	// SelectMasterKey: route the ZMK (XORed with the OTPMK where so
	// fused) to the crypto engine and enable the selection.
	s.set("SelectMasterKey", snvs.RegLPMKCR, snvs.MasterKeySelZMK)
	s.setField("SelectMasterKey", snvs.FieldMKSEnable)

	// ApplySelectLock: same reset domain as the key locks.
	if s.cfg.ResetDomain == ResetPowerOn {
		s.setField("ApplySelectLock", snvs.FieldMKSHardLock)
	} else {
		s.setField("ApplySelectLock", snvs.FieldMKSSoftLock)
	}

	s.rep.Outcome(res, nil)
	return res, nil
}

func (s *Sequencer) abort(step string, err error) (*Result, error) {
	detail := err.Error()
	if a, ok := err.(*AbortError); ok {
		detail = a.Detail
	}
	s.rep.Guard(step, false, detail)
	s.rep.Outcome(nil, err)
	return nil, err
}

// set ORs bits into a register and reports the before/after values.
func (s *Sequencer) set(step string, offset, bits uint32) {
	before := s.bank.Read(offset)
	s.bank.Set(offset, bits)
	after := s.bank.Read(offset)
	s.rep.Step(StepRecord{Step: step, Register: snvs.RegName(offset), Before: before, After: after})
}

func (s *Sequencer) setField(step string, f snvs.Field) {
	s.set(step, f.Reg, f.Mask)
}

// busySpin burns a bounded number of iterations between setting the read
// lock and checking zeroization. Deliberately a CPU spin and not a
// sleep: the bound is calibrated against the hardware's internal
// clearing latency, and a scheduler yield would add timing variance.
func busySpin(n int) {
	for i := 0; i < n; i++ {
	}
}
