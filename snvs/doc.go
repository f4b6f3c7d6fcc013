// Package snvs describes the register surface of the SNVS (Secure
// Non-Volatile Storage) security module found on i.MX-class SoCs, as far
// as ZMK provisioning is concerned.
//
// The package provides three things:
//
//   - The register map: offsets of the high-power (HP) and low-power (LP)
//     domain registers within the SNVS bank, the bit fields inside them,
//     and the magic values the Security Reference Manual mandates
//     (power-glitch detector seed, master-key-select encoding).
//
//   - A Field abstraction (register offset, mask, shift) with typed
//     accessors instead of the mask/offset macro pairs of the usual C
//     register headers. Fields are only ever OR-written; SNVS lock and
//     control bits are write-1-to-set and cannot be cleared by software.
//
//   - The RegisterBank interface separating register access from the
//     backing store, plus MemBank, an in-memory bank used by the test
//     suite and by dry runs. The real /dev/mem-backed bank lives in the
//     devmem package.
//
// Nothing in this package sequences writes or enforces provisioning
// preconditions; that is the provision package's job.
package snvs
