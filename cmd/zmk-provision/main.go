package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/ruteri/snvs-zmk-provisioner/cmd/flags"
	"github.com/ruteri/snvs-zmk-provisioner/devmem"
	"github.com/ruteri/snvs-zmk-provisioner/provision"
	"github.com/ruteri/snvs-zmk-provisioner/snvs"
	"github.com/urfave/cli/v2"
)

var appFlags = append([]cli.Flag{
	flags.DeviceFlag,
	flags.BaseAddrFlag,
	flags.KeyFlag,
	flags.ResetDomainFlag,
	flags.ZeroizeSpinFlag,
	flags.ConfigFlag,
	flags.DryRunFlag,
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:  "zmk-provision",
		Usage: "Program a zeroizable master key into the SNVS security module",
		Flags: appFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			cfg, err := buildConfig(cCtx)
			if err != nil {
				logger.Error("Invalid configuration", "err", err)
				return err
			}

			bank, cleanup, err := openBank(cCtx, logger)
			if err != nil {
				logger.Error("Failed to acquire register bank", "err", err)
				return err
			}
			defer cleanup()

			seq, err := provision.New(bank, cfg, &provision.SlogReporter{Log: logger})
			if err != nil {
				logger.Error("Failed to build sequencer", "err", err)
				return err
			}

			// The reporter logs every step and the final outcome;
			// a non-nil error here maps to a nonzero exit code.
			_, err = seq.Run()
			return err
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// buildConfig merges the optional YAML config file with flag overrides.
// Flags win when explicitly set.
func buildConfig(cCtx *cli.Context) (*provision.Config, error) {
	cfg := provision.DefaultConfig()
	if path := cCtx.String(flags.ConfigFlag.Name); path != "" {
		var err error
		cfg, err = provision.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if v := cCtx.String(flags.KeyFlag.Name); v != "" {
		key, err := strconv.ParseUint(v, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing key value %q: %w", v, err)
		}
		cfg.KeyValue = uint32(key)
	}
	if cCtx.IsSet(flags.ResetDomainFlag.Name) {
		cfg.ResetDomain = provision.ResetDomain(cCtx.String(flags.ResetDomainFlag.Name))
	}
	if cCtx.IsSet(flags.ZeroizeSpinFlag.Name) {
		cfg.ZeroizeSpinCount = cCtx.Int(flags.ZeroizeSpinFlag.Name)
	}

	if cfg.KeyValue == 0 {
		return nil, errors.New("a nonzero key value is required (--key or config file)")
	}
	return cfg, cfg.Validate()
}

// openBank returns either the /dev/mem-backed bank or, for dry runs, the
// in-memory simulator preloaded with a healthy unprogrammed part.
func openBank(cCtx *cli.Context, logger *slog.Logger) (snvs.RegisterBank, func(), error) {
	if cCtx.Bool(flags.DryRunFlag.Name) {
		logger.Info("Dry run, using simulated register bank")
		return snvs.NewSimulatedBank(), func() {}, nil
	}

	device := cCtx.String(flags.DeviceFlag.Name)
	baseStr := cCtx.String(flags.BaseAddrFlag.Name)
	base, err := strconv.ParseUint(baseStr, 0, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing base address %q: %w", baseStr, err)
	}

	logger.Info("Mapping SNVS register bank", "device", device, "base", baseStr, "size", snvs.WindowSize)
	bank, err := devmem.Open(device, base, snvs.WindowSize)
	if err != nil {
		return nil, nil, err
	}
	return bank, func() {
		if err := bank.Close(); err != nil {
			logger.Error("Failed to release register bank", "err", err)
		}
	}, nil
}
