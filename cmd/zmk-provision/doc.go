// Package main (cmd/zmk-provision) is a one-shot tool that programs a
// zeroizable master key (ZMK) into the SNVS security module by mapping
// the module's register bank from /dev/mem and running the provisioning
// sequence against it.
//
// The run either reaches Success (exit code 0) or aborts at the first
// failed precondition (nonzero exit); every guard decision and register
// mutation is logged, so the abort reason is always identifiable from
// the output. There are no retries: the conditions the guards check only
// change across a system or power-on reset.
//
// The key value, the reset-domain lock policy and the zeroization spin
// bound come from flags or a YAML config file. --dry-run substitutes an
// in-memory simulated bank for the hardware and runs the identical
// sequence, which is useful for validating a config before touching a
// real part: locks set on real silicon are irreversible within the
// selected reset domain.
package main
