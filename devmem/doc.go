// Package devmem provides the physical-memory-backed register bank: a
// fixed window at a fixed physical base address mapped from /dev/mem
// (or a compatible character device), exposed through the
// snvs.RegisterBank interface.
//
// Opening the device and mapping the window fail distinctly
// (ErrOpenDevice vs ErrMapFailed); everything after a successful Open is
// plain register access with no error path, matching the hardware.
package devmem
