package flags

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/ruteri/snvs-zmk-provisioner/common"
	"github.com/ruteri/snvs-zmk-provisioner/provision"
	"github.com/urfave/cli/v2"
)

// SetupLogger builds the command logger from the common logging flags.
func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "zmk-provision",
	Usage: "add 'service' tag to logs",
}

var DeviceFlag = &cli.StringFlag{
	Name:  "device",
	Value: "/dev/mem",
	Usage: "memory device to map the SNVS register bank from",
}
var BaseAddrFlag = &cli.StringFlag{
	Name:  "base-addr",
	Value: "0x020cc000",
	Usage: "physical base address of the SNVS register bank",
}
var KeyFlag = &cli.StringFlag{
	Name:  "key",
	Usage: "32-bit ZMK value to program, e.g. 0x11223344",
}
var ResetDomainFlag = &cli.StringFlag{
	Name:  "reset-domain",
	Value: string(provision.ResetPowerOn),
	Usage: "which reset clears the applied locks: 'power-on-reset' (hard locks) or 'system-reset' (soft locks)",
}
var ZeroizeSpinFlag = &cli.IntFlag{
	Name:  "zeroize-spin",
	Value: provision.DefaultZeroizeSpinCount,
	Usage: "busy-wait iterations allowed for the hardware to zeroize the read-locked key register",
}
var ConfigFlag = &cli.StringFlag{
	Name:  "config",
	Usage: "YAML config file with key_value, reset_domain, zeroize_spin_count; flags override",
}
var DryRunFlag = &cli.BoolFlag{
	Name:  "dry-run",
	Value: false,
	Usage: "run the full sequence against an in-memory simulated bank instead of the hardware",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}
