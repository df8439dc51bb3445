// Command report writes the device security report to an xlsx file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"iot-posture-monitor/internal/config"
	"iot-posture-monitor/internal/domain/posture"
	"iot-posture-monitor/internal/infrastructure/database"
	"iot-posture-monitor/internal/logger"
	"iot-posture-monitor/internal/report"
	"iot-posture-monitor/internal/usecase/device"
)

func main() {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	if err := logger.Init(env); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		logger.Error("Report failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("report", pflag.ContinueOnError)
	configFile := flags.String("config", config.DefaultFile, "config file (.env or yaml)")
	flags.String("output", "", "destination xlsx file (REPORT_OUTPUT_PATH)")
	flags.String("reference-firmware", "", "firmware version devices must run (SECURITY_REFERENCE_FIRMWARE)")
	remediate := flags.Bool("remediate", false, "move outdated devices to the reference firmware first")
	seed := flags.Bool("seed", false, "insert the sample devices when the store is empty")
	if err := flags.Parse(args); err != nil {
		return err
	}

	v, err := config.NewViper(*configFile)
	if err != nil {
		return err
	}
	if err := v.BindPFlag("REPORT_OUTPUT_PATH", flags.Lookup("output")); err != nil {
		return err
	}
	if err := v.BindPFlag("SECURITY_REFERENCE_FIRMWARE", flags.Lookup("reference-firmware")); err != nil {
		return err
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db, database.MigrateOptions{MinPasswordLength: cfg.Security.MinPasswordLength}); err != nil {
		return err
	}

	repo := database.NewRetryingRepository(
		database.NewDeviceRepository(db),
		database.RetryPolicy{MaxRetries: cfg.Database.MaxRetries},
	)
	policy := cfg.Security.Policy()
	service := device.NewService(repo, posture.NewPolicyProvider(policy))

	if *seed {
		created, err := service.Seed(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "seeded %d devices\n", created)
	}
	if *remediate {
		res, err := service.RemediateOutdated(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "updated %d devices to firmware %s\n", len(res.Updated), res.FirmwareVersion)
	}

	devices, err := repo.List(ctx)
	if err != nil {
		return err
	}
	result, err := report.Generate(devices, policy, cfg.Report.OutputPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "wrote %d rows to %s\n", result.Rows, result.Path)
	return nil
}
