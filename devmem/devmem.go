//go:build darwin || linux

package devmem

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Sentinel errors distinguishing the two ways acquiring the register
// window can fail. Callers match with errors.Is.
var (
	ErrOpenDevice = errors.New("cannot open memory device")
	ErrMapFailed  = errors.New("cannot map register window")
)

// Bank is a snvs.RegisterBank over a window of physical memory mapped
// from a character device, normally /dev/mem opened O_SYNC so accesses
// reach the bus uncached.
//
// A Bank owns its mapping exclusively for the lifetime of one
// provisioning run. It is not safe for concurrent use; the SNVS has no
// notion of concurrent sessions and a second user would race against
// lock bits set by the first.
type Bank struct {
	fd   int
	mem  []byte
	base uint64
}

// Open maps a size-byte window at physical address base from the given
// device. The returned error wraps ErrOpenDevice or ErrMapFailed so the
// caller can tell which stage failed. base must be page-aligned; the
// SNVS base on supported parts is.
func Open(device string, base uint64, size int) (*Bank, error) {
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenDevice, device, err)
	}

	mem, err := unix.Mmap(fd, int64(base), size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: base 0x%x size 0x%x: %v", ErrMapFailed, base, size, err)
	}

	return &Bank{fd: fd, mem: mem, base: base}, nil
}

// Read returns the 32-bit register at the given offset. Atomic loads
// keep the compiler from caching or eliding device reads.
func (b *Bank) Read(offset uint32) uint32 {
	return atomic.LoadUint32(b.reg(offset))
}

// Set ORs bits into the register at the given offset, the write-1-to-set
// access pattern the SNVS control and lock registers expect.
func (b *Bank) Set(offset uint32, bits uint32) {
	reg := b.reg(offset)
	atomic.StoreUint32(reg, atomic.LoadUint32(reg)|bits)
}

// Close unmaps the window and closes the device.
func (b *Bank) Close() error {
	var firstErr error
	if err := unix.Munmap(b.mem); err != nil {
		firstErr = fmt.Errorf("unmapping register window: %w", err)
	}
	if err := unix.Close(b.fd); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing memory device: %w", err)
	}
	return firstErr
}

func (b *Bank) reg(offset uint32) *uint32 {
	return (*uint32)(unsafe.Pointer(&b.mem[offset]))
}
