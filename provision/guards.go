package provision

import (
	"fmt"
	"strings"

	"github.com/ruteri/snvs-zmk-provisioner/snvs"
)

// The guards below decide, from live register state, whether the
// sequence may continue. They are evaluated once each, in a fixed order,
// short-circuiting on the first failure; none of them writes a register.

// checkSecurityMode reads SNVS_HPSR[SSM_ST] and requires one of the
// three functional states. Check or any undefined encoding aborts the
// run.
func checkSecurityMode(bank snvs.RegisterBank) (snvs.SecurityMode, error) {
	mode := snvs.SecurityMode(snvs.FieldSSMState.Read(bank))
	if !mode.Functional() {
		return mode, &AbortError{
			Step:   "CheckMode",
			Reason: InvalidSecurityMode,
			Detail: fmt.Sprintf("security monitor in %s state (SSM_ST=0x%x), need non-secure, trusted or secure", mode, uint32(mode)),
		}
	}
	return mode, nil
}

// checkHardwareProgramming requires SNVS_LPMKCR[ZMK_HWP] clear. When the
// hardware programming mechanism owns the key, software provisioning is
// forbidden.
func checkHardwareProgramming(bank snvs.RegisterBank) error {
	if snvs.FieldZMKHWProgramming.IsSet(bank) {
		return &AbortError{
			Step:   "CheckHardwareProgramming",
			Reason: KeyLockedByHardware,
			Detail: "SNVS_LPMKCR[ZMK_HWP] set, ZMK is in hardware programming mode",
		}
	}
	return nil
}

// checkSoftLocks requires all three SNVS_HPLR soft locks clear. Set soft
// locks only clear on a system reset.
func checkSoftLocks(bank snvs.RegisterBank) error {
	locked := setFields(bank, map[string]snvs.Field{
		"ZMK_WSL": snvs.FieldZMKWriteSoftLock,
		"ZMK_RSL": snvs.FieldZMKReadSoftLock,
		"MKS_SL":  snvs.FieldMKSSoftLock,
	})
	if len(locked) > 0 {
		return &AbortError{
			Step:   "CheckLocks",
			Reason: WriteLockedSoft,
			Detail: fmt.Sprintf("SNVS_HPLR[%s] set, cleared only by system reset", strings.Join(locked, ",")),
		}
	}
	return nil
}

// checkHardLocks requires all three SNVS_LPLR hard locks clear. Set hard
// locks only clear on a power-on reset.
func checkHardLocks(bank snvs.RegisterBank) error {
	locked := setFields(bank, map[string]snvs.Field{
		"ZMK_WHL": snvs.FieldZMKWriteHardLock,
		"ZMK_RHL": snvs.FieldZMKReadHardLock,
		"MKS_HL":  snvs.FieldMKSHardLock,
	})
	if len(locked) > 0 {
		return &AbortError{
			Step:   "CheckLocks",
			Reason: WriteLockedHard,
			Detail: fmt.Sprintf("SNVS_LPLR[%s] set, cleared only by power-on reset", strings.Join(locked, ",")),
		}
	}
	return nil
}

func setFields(bank snvs.RegisterBank, fields map[string]snvs.Field) []string {
	var set []string
	// Stable order for diagnostics.
	for _, name := range []string{"ZMK_WSL", "ZMK_RSL", "MKS_SL", "ZMK_WHL", "ZMK_RHL", "MKS_HL"} {
		f, ok := fields[name]
		if ok && f.IsSet(bank) {
			set = append(set, name)
		}
	}
	return set
}
