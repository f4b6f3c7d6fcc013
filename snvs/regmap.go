package snvs

// BaseAddr is the physical base address of the SNVS register bank on
// i.MX6/7-class parts. Overridable on the command line for other parts.
const BaseAddr = 0x020cc000

// WindowSize is the minimum mapped window: it must cover HPVIDR2, the
// highest-offset register this tool reads.
const WindowSize = 0xC00

// Register offsets within the SNVS bank. HP registers live in the
// high-power (privileged) domain and are reset by a system reset; LP
// registers live in the low-power domain and survive everything short of
// a power-on reset.
const (
	RegHPLR    = 0x00  // HP Lock Register (soft locks)
	RegHPCOMR  = 0x04  // HP Command Register
	RegHPSR    = 0x14  // HP Status Register
	RegLPLR    = 0x34  // LP Lock Register (hard locks)
	RegLPMKCR  = 0x3C  // LP Master Key Control Register
	RegLPSR    = 0x4C  // LP Status Register
	RegLPPGDR  = 0x64  // LP Power Glitch Detector Register
	RegLPZMKR0 = 0x6C  // first of eight LP ZMK registers
	RegHPVIDR1 = 0xBF8 // HP Version ID Register 1
	RegHPVIDR2 = 0xBFC // HP Version ID Register 2
)

// Soft locks (SNVS_HPLR): cleared by a system reset.
var (
	FieldZMKWriteSoftLock = Field{Reg: RegHPLR, Mask: 0x00000001, Shift: 0} // ZMK_WSL
	FieldZMKReadSoftLock  = Field{Reg: RegHPLR, Mask: 0x00000002, Shift: 1} // ZMK_RSL
	FieldMKSSoftLock      = Field{Reg: RegHPLR, Mask: 0x00000200, Shift: 9} // MKS_SL
)

// Hard locks (SNVS_LPLR): cleared only by a power-on reset.
var (
	FieldZMKWriteHardLock = Field{Reg: RegLPLR, Mask: 0x00000001, Shift: 0} // ZMK_WHL
	FieldZMKReadHardLock  = Field{Reg: RegLPLR, Mask: 0x00000002, Shift: 1} // ZMK_RHL
	FieldMKSHardLock      = Field{Reg: RegLPLR, Mask: 0x00000200, Shift: 9} // MKS_HL
)

// Status and control fields.
var (
	FieldSSMState         = Field{Reg: RegHPSR, Mask: 0x00000F00, Shift: 8}    // SSM_ST
	FieldMKSEnable        = Field{Reg: RegHPCOMR, Mask: 0x00002000, Shift: 13} // MKS_EN
	FieldZMKHWProgramming = Field{Reg: RegLPMKCR, Mask: 0x00000004, Shift: 2}  // ZMK_HWP
	FieldZMKValid         = Field{Reg: RegLPMKCR, Mask: 0x00000008, Shift: 3}  // ZMK_VAL
	FieldZMKECCEnable     = Field{Reg: RegLPMKCR, Mask: 0x00000010, Shift: 4}  // ZMK_ECC_EN
	FieldZMKECCValue      = Field{Reg: RegLPMKCR, Mask: 0x01FF0000, Shift: 16} // ZMK_ECC_VALUE
	FieldMasterKeySel     = Field{Reg: RegLPMKCR, Mask: 0x00000003, Shift: 0}  // MASTER_KEY_SEL
	FieldPowerGlitch      = Field{Reg: RegLPSR, Mask: 0x00000008, Shift: 3}    // PGD
)

// Version ID fields (informational only).
var (
	FieldIPID     = Field{Reg: RegHPVIDR1, Mask: 0xFFFF0000, Shift: 16}
	FieldMajorRev = Field{Reg: RegHPVIDR1, Mask: 0x0000FF00, Shift: 8}
	FieldMinorRev = Field{Reg: RegHPVIDR1, Mask: 0x000000FF, Shift: 0}
)

// PowerGlitchValue is the seed the Security RM requires in SNVS_LPPGDR
// before the power glitch detector record can be trusted.
const PowerGlitchValue = 0x41736166

// MasterKeySelZMK is the MASTER_KEY_SEL encoding that selects the
// zeroizable master key (effective once MKS_EN is also set; the hardware
// XORs in the OTPMK when so fused).
const MasterKeySelZMK = 0x2

// SecurityMode is the SSM (System Security Monitor) state read from
// SNVS_HPSR[SSM_ST].
type SecurityMode uint32

const (
	ModeCheck     SecurityMode = 0x9
	ModeNonSecure SecurityMode = 0xB
	ModeTrusted   SecurityMode = 0xD
	ModeSecure    SecurityMode = 0xF
)

// Functional reports whether the SSM has left its check state and entered
// one of the three states in which provisioning may proceed.
func (m SecurityMode) Functional() bool {
	switch m {
	case ModeNonSecure, ModeTrusted, ModeSecure:
		return true
	}
	return false
}

func (m SecurityMode) String() string {
	switch m {
	case ModeCheck:
		return "check"
	case ModeNonSecure:
		return "non-secure"
	case ModeTrusted:
		return "trusted"
	case ModeSecure:
		return "secure"
	}
	return "undefined"
}

var regNames = map[uint32]string{
	RegHPLR:    "SNVS_HPLR",
	RegHPCOMR:  "SNVS_HPCOMR",
	RegHPSR:    "SNVS_HPSR",
	RegLPLR:    "SNVS_LPLR",
	RegLPMKCR:  "SNVS_LPMKCR",
	RegLPSR:    "SNVS_LPSR",
	RegLPPGDR:  "SNVS_LPPGDR",
	RegLPZMKR0: "SNVS_LPZMKR0",
	RegHPVIDR1: "SNVS_HPVIDR1",
	RegHPVIDR2: "SNVS_HPVIDR2",
}

// RegName returns the documented name of the register at the given
// offset, for diagnostics. Unknown offsets are rendered as hex.
func RegName(offset uint32) string {
	if name, ok := regNames[offset]; ok {
		return name
	}
	return "SNVS+" + hex32(offset)
}
