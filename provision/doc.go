// Package provision implements the ZMK provisioning sequence: the
// ordered precondition checks, register writes, read-back verifications
// and lock assertions that take an SNVS module from unprogrammed to a
// state where a software-supplied key feeds the cryptographic master
// key.
//
// The sequence is a one-directional state machine with terminal states
// Success and Aborted(reason):
//
//	Init → CheckMode → ArmPowerGlitchDetector →
//	CheckHardwareProgramming → CheckLocks →
//	WriteKey → VerifyKey → ActivateKey → EnableErrorCorrection →
//	ApplyWriteReadLocks → AwaitZeroization →
//	SelectMasterKey → ApplySelectLock → Success
//
// There are no retries: every guard reads live hardware state that only
// a system or power-on reset can change, so re-evaluating without a
// reset is defined to be futile. Once WriteKey has executed, the run is
// committed and must reach the end of the sequence; the hardware has no
// rollback, and a run interrupted after that point leaves the part
// partially locked.
//
// The sequencer works against the snvs.RegisterBank interface, so the
// same code path runs against the live module (devmem.Bank) and the
// in-memory simulator (snvs.MemBank) used by tests and dry runs.
package provision
