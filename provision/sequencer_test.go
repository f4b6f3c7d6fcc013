package provision

import (
	"testing"

	"github.com/ruteri/snvs-zmk-provisioner/snvs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = 0x11223344

// recordingReporter captures everything the sequencer reports so tests
// can assert on the diagnostic record as well as on register state.
type recordingReporter struct {
	steps      []StepRecord
	guards     []string
	warns      []string
	outcomeRes *Result
	outcomeErr error
}

func (r *recordingReporter) Step(rec StepRecord) { r.steps = append(r.steps, rec) }
func (r *recordingReporter) Guard(name string, passed bool, detail string) {
	r.guards = append(r.guards, name)
}
func (r *recordingReporter) Note(msg string, args ...any) {}
func (r *recordingReporter) Warn(msg string, args ...any) { r.warns = append(r.warns, msg) }
func (r *recordingReporter) Outcome(res *Result, err error) {
	r.outcomeRes = res
	r.outcomeErr = err
}

func (r *recordingReporter) stepsNamed(name string) []StepRecord {
	var out []StepRecord
	for _, rec := range r.steps {
		if rec.Step == name {
			out = append(out, rec)
		}
	}
	return out
}

func testConfig(domain ResetDomain) *Config {
	return &Config{
		KeyValue:         testKey,
		ResetDomain:      domain,
		ZeroizeSpinCount: 64,
	}
}

func TestRunAbortsOnInvalidSecurityMode(t *testing.T) {
	for _, tc := range []struct {
		name string
		mode uint32
	}{
		{"check state", uint32(snvs.ModeCheck)},
		{"power-on zero", 0x0},
		{"undefined encoding", 0x3},
		{"undefined high encoding", 0xC},
	} {
		t.Run(tc.name, func(t *testing.T) {
			bank := snvs.NewMemBank()
			bank.Poke(snvs.RegHPSR, tc.mode<<snvs.FieldSSMState.Shift)
			rep := &recordingReporter{}

			seq, err := New(bank, testConfig(ResetPowerOn), rep)
			require.NoError(t, err, "sequencer construction should succeed")

			_, err = seq.Run()
			require.Error(t, err, "run must abort in a non-functional mode")
			assert.Equal(t, InvalidSecurityMode, ReasonOf(err), "abort reason should be invalid security mode")

			// A mode failure must happen before any register is written.
			assert.Empty(t, rep.steps, "no register writes may occur on a mode failure")
			assert.Zero(t, bank.Read(snvs.RegLPPGDR), "glitch detector must be untouched")
			assert.Zero(t, bank.Read(snvs.RegLPZMKR0), "key register must be untouched")
			assert.Equal(t, err, rep.outcomeErr, "outcome must be reported to the sink")
		})
	}
}

func TestRunAbortsWhenHardwareProgrammingSet(t *testing.T) {
	bank := snvs.NewSimulatedBank()
	bank.Poke(snvs.RegLPMKCR, snvs.FieldZMKHWProgramming.Mask)
	rep := &recordingReporter{}

	seq, err := New(bank, testConfig(ResetPowerOn), rep)
	require.NoError(t, err)

	_, err = seq.Run()
	require.Error(t, err, "run must abort when ZMK_HWP is set")
	assert.Equal(t, KeyLockedByHardware, ReasonOf(err))
	assert.Zero(t, bank.Read(snvs.RegLPZMKR0), "key register must be untouched")
}

func TestRunAbortsOnAnyLock(t *testing.T) {
	for _, tc := range []struct {
		name   string
		field  snvs.Field
		reason AbortReason
	}{
		{"zmk write soft lock", snvs.FieldZMKWriteSoftLock, WriteLockedSoft},
		{"zmk read soft lock", snvs.FieldZMKReadSoftLock, WriteLockedSoft},
		{"mks soft lock", snvs.FieldMKSSoftLock, WriteLockedSoft},
		{"zmk write hard lock", snvs.FieldZMKWriteHardLock, WriteLockedHard},
		{"zmk read hard lock", snvs.FieldZMKReadHardLock, WriteLockedHard},
		{"mks hard lock", snvs.FieldMKSHardLock, WriteLockedHard},
	} {
		t.Run(tc.name, func(t *testing.T) {
			bank := snvs.NewSimulatedBank()
			bank.Poke(tc.field.Reg, tc.field.Mask)
			rep := &recordingReporter{}

			seq, err := New(bank, testConfig(ResetPowerOn), rep)
			require.NoError(t, err)

			_, err = seq.Run()
			require.Error(t, err, "run must abort when a lock is already set")
			assert.Equal(t, tc.reason, ReasonOf(err), "abort reason must match the lock domain")

			assert.Empty(t, rep.stepsNamed("WriteKey"), "WriteKey must never run behind a lock")
			assert.Zero(t, bank.Read(snvs.RegLPZMKR0), "key register must be untouched")
		})
	}
}

func TestRunVerifyFailsOnMaskedWrite(t *testing.T) {
	bank := snvs.NewSimulatedBank()
	// Model a key register that silently drops one bit on write.
	bank.OnSet = func(b *snvs.MemBank, offset, bits uint32) {
		if offset == snvs.RegLPZMKR0 {
			b.Poke(offset, b.Read(offset)&^uint32(0x4))
		}
	}
	rep := &recordingReporter{}

	seq, err := New(bank, testConfig(ResetPowerOn), rep)
	require.NoError(t, err)

	_, err = seq.Run()
	require.Error(t, err, "run must abort when read-back differs from the written key")
	assert.Equal(t, KeyVerificationFailed, ReasonOf(err))

	// The run died before any lock was applied.
	assert.Zero(t, bank.Read(snvs.RegHPLR), "no soft lock may be set after a verify failure")
	assert.Zero(t, bank.Read(snvs.RegLPLR), "no hard lock may be set after a verify failure")
}

func TestRunSuccessPowerOnResetPolicy(t *testing.T) {
	bank := snvs.NewSimulatedBank()
	rep := &recordingReporter{}

	seq, err := New(bank, testConfig(ResetPowerOn), rep)
	require.NoError(t, err)

	res, err := seq.Run()
	require.NoError(t, err, "healthy unprogrammed part must provision successfully")
	require.NotNil(t, res)

	assert.Equal(t, snvs.ModeSecure, res.Mode)
	assert.True(t, res.ZeroizationConfirmed, "simulated hardware zeroizes on read lock")

	// Key register was programmed, verified, then zeroized by the
	// simulated read-lock effect.
	assert.Zero(t, bank.Read(snvs.RegLPZMKR0), "key register must be zero after read lock")

	// Hard locks written, soft locks untouched.
	assert.True(t, snvs.FieldZMKReadHardLock.IsSet(bank), "ZMK read hard lock must be set")
	assert.True(t, snvs.FieldZMKWriteHardLock.IsSet(bank), "ZMK write hard lock must be set")
	assert.True(t, snvs.FieldMKSHardLock.IsSet(bank), "MKS hard lock must be set")
	assert.Zero(t, bank.Read(snvs.RegHPLR), "soft lock register must be untouched under power-on-reset policy")

	// Key activation and master key selection.
	assert.True(t, snvs.FieldZMKValid.IsSet(bank), "ZMK_VAL must be set")
	assert.True(t, snvs.FieldZMKECCEnable.IsSet(bank), "ZMK_ECC_EN must be set")
	assert.Equal(t, uint32(snvs.MasterKeySelZMK), snvs.FieldMasterKeySel.Read(bank), "master key select must choose the ZMK")
	assert.True(t, snvs.FieldMKSEnable.IsSet(bank), "MKS_EN must be set")

	// Glitch detector armed.
	assert.Equal(t, uint32(snvs.PowerGlitchValue), bank.Read(snvs.RegLPPGDR))

	require.NotNil(t, rep.outcomeRes, "success outcome must be reported")
	assert.Empty(t, rep.warns, "a confirmed zeroization produces no warnings")
}

func TestRunSuccessSystemResetPolicy(t *testing.T) {
	bank := snvs.NewSimulatedBank()
	rep := &recordingReporter{}

	seq, err := New(bank, testConfig(ResetSystem), rep)
	require.NoError(t, err)

	res, err := seq.Run()
	require.NoError(t, err)
	assert.True(t, res.ZeroizationConfirmed)

	// Soft locks written, hard locks untouched.
	assert.True(t, snvs.FieldZMKReadSoftLock.IsSet(bank), "ZMK read soft lock must be set")
	assert.True(t, snvs.FieldZMKWriteSoftLock.IsSet(bank), "ZMK write soft lock must be set")
	assert.True(t, snvs.FieldMKSSoftLock.IsSet(bank), "MKS soft lock must be set")
	assert.Zero(t, bank.Read(snvs.RegLPLR), "hard lock register must be untouched under system-reset policy")
}

func TestRunWarnsWhenZeroizationNotConfirmed(t *testing.T) {
	// A bank whose key register never self-clears: no zeroization hook.
	bank := snvs.NewMemBank()
	bank.Poke(snvs.RegHPSR, uint32(snvs.ModeSecure)<<snvs.FieldSSMState.Shift)
	rep := &recordingReporter{}

	seq, err := New(bank, testConfig(ResetPowerOn), rep)
	require.NoError(t, err)

	res, err := seq.Run()
	require.NoError(t, err, "unconfirmed zeroization is a warning, the run still succeeds")
	assert.False(t, res.ZeroizationConfirmed, "key register stayed nonzero")
	assert.Equal(t, uint32(testKey), bank.Read(snvs.RegLPZMKR0), "simulated key register keeps its value")
	require.Len(t, rep.warns, 1, "exactly one warning must be reported")
	assert.Equal(t, "zeroization not confirmed", rep.warns[0])

	// The run is committed by then: locks and selection still applied.
	assert.True(t, snvs.FieldZMKReadHardLock.IsSet(bank))
	assert.True(t, snvs.FieldMKSEnable.IsSet(bank))
}

func TestRunIsNotIdempotent(t *testing.T) {
	// Locks persist in the bank; a second run against the same bank must
	// refuse to write.
	bank := snvs.NewSimulatedBank()

	seq, err := New(bank, testConfig(ResetPowerOn), &recordingReporter{})
	require.NoError(t, err)
	_, err = seq.Run()
	require.NoError(t, err, "first run must succeed")

	rep := &recordingReporter{}
	second, err := New(bank, testConfig(ResetPowerOn), rep)
	require.NoError(t, err)

	_, err = second.Run()
	require.Error(t, err, "second run against a locked bank must abort")
	assert.Equal(t, WriteLockedHard, ReasonOf(err), "power-on-reset policy leaves hard locks behind")
	assert.Empty(t, rep.stepsNamed("WriteKey"), "second run must not reach WriteKey")
}

func TestRunRefusesOverlappingRun(t *testing.T) {
	bank := snvs.NewSimulatedBank()
	cfg := testConfig(ResetPowerOn)

	seq, err := New(bank, cfg, &recordingReporter{})
	require.NoError(t, err)

	// Reenter Run from inside the first register write.
	var nested error
	reentered := false
	bank.OnSet = func(b *snvs.MemBank, offset, bits uint32) {
		if !reentered {
			reentered = true
			_, nested = seq.Run()
		}
		snvs.ZeroizeOnReadLock(b, offset, bits)
	}

	_, err = seq.Run()
	require.NoError(t, err, "outer run must complete")
	require.True(t, reentered)
	assert.ErrorIs(t, nested, ErrRunInProgress, "overlapping run must be refused")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	bank := snvs.NewMemBank()

	_, err := New(bank, &Config{ResetDomain: ResetPowerOn, ZeroizeSpinCount: 1}, nil)
	assert.Error(t, err, "zero key value must be rejected")

	_, err = New(bank, &Config{KeyValue: 1, ResetDomain: "warm-ish", ZeroizeSpinCount: 1}, nil)
	assert.Error(t, err, "unknown reset domain must be rejected")

	_, err = New(bank, &Config{KeyValue: 1, ResetDomain: ResetSystem}, nil)
	assert.Error(t, err, "non-positive spin count must be rejected")
}
