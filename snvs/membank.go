package snvs

// MemBank is a RegisterBank backed by process memory, standing in for
// the live SNVS bank in tests and dry runs.
//
// Set applies the same OR-assign semantics as the hardware and then
// invokes the OnSet hook, if any. The hook is where hardware side
// effects are modelled: a bank can drop write bits (a masked register),
// or zeroize the key registers when a read lock is set. Poke bypasses
// the OR semantics and is how tests and hooks establish raw hardware
// state (status fields, self-clearing registers).
type MemBank struct {
	words [WindowSize / 4]uint32

	// OnSet, when non-nil, runs after each Set with the offset written
	// and the bits that were ORed in.
	OnSet func(b *MemBank, offset, bits uint32)
}

// NewMemBank returns an all-zero bank with no side-effect hook.
func NewMemBank() *MemBank {
	return &MemBank{}
}

// NewSimulatedBank returns a bank modelling a healthy unprogrammed part:
// the security monitor reports Secure, version registers carry plausible
// silicon IDs, and setting a ZMK read lock (either domain) zeroizes the
// key register, as the hardware does.
func NewSimulatedBank() *MemBank {
	b := NewMemBank()
	b.Poke(RegHPSR, uint32(ModeSecure)<<FieldSSMState.Shift)
	b.Poke(RegHPVIDR1, 0x003E0300)
	b.Poke(RegHPVIDR2, 0x03000000)
	b.OnSet = ZeroizeOnReadLock
	return b
}

// ZeroizeOnReadLock is the MemBank hook modelling ZMK self-zeroization:
// once a read lock covers the key register, the hardware clears it.
func ZeroizeOnReadLock(b *MemBank, offset, bits uint32) {
	switch {
	case offset == RegLPLR && bits&FieldZMKReadHardLock.Mask != 0:
		b.Poke(RegLPZMKR0, 0)
	case offset == RegHPLR && bits&FieldZMKReadSoftLock.Mask != 0:
		b.Poke(RegLPZMKR0, 0)
	}
}

func (b *MemBank) Read(offset uint32) uint32 {
	return b.words[offset/4]
}

func (b *MemBank) Set(offset uint32, bits uint32) {
	b.words[offset/4] |= bits
	if b.OnSet != nil {
		b.OnSet(b, offset, bits)
	}
}

// Poke stores a raw register value, bypassing OR semantics and the OnSet
// hook. This models state the hardware establishes on its own.
func (b *MemBank) Poke(offset uint32, value uint32) {
	b.words[offset/4] = value
}
