package snvs

import "fmt"

// RegisterBank is read/OR-write access to 32-bit registers at fixed
// offsets within one SNVS bank. Implementations: devmem.Bank over the
// live module, MemBank for simulation.
//
// Set has OR-assign semantics, matching the write-1-to-set behavior of
// the SNVS lock and control registers: software only ever sets bits,
// never clears them. The hardware may still mutate registers on its own
// (it zeroizes the ZMK registers once a read lock is set).
type RegisterBank interface {
	Read(offset uint32) uint32
	Set(offset uint32, bits uint32)
}

// Field is a named sub-range of a register's bits: one value carrying
// the register offset, the mask, and the shift together.
type Field struct {
	Reg   uint32
	Mask  uint32
	Shift uint
}

// Read returns the field value, masked and shifted down.
func (f Field) Read(b RegisterBank) uint32 {
	return (b.Read(f.Reg) & f.Mask) >> f.Shift
}

// IsSet reports whether any bit of the field is set.
func (f Field) IsSet(b RegisterBank) bool {
	return b.Read(f.Reg)&f.Mask != 0
}

// Write ORs the given field value into the register. Bits outside the
// field's mask are discarded.
func (f Field) Write(b RegisterBank, v uint32) {
	b.Set(f.Reg, (v<<f.Shift)&f.Mask)
}

// SetBits ORs the field's full mask into the register. This is the
// common case for single-bit lock and enable fields.
func (f Field) SetBits(b RegisterBank) {
	b.Set(f.Reg, f.Mask)
}

func hex32(v uint32) string {
	return fmt.Sprintf("0x%08x", v)
}
