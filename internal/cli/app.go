package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/rmatrack/internal/access"
	"github.com/roach88/rmatrack/internal/blob"
	"github.com/roach88/rmatrack/internal/config"
	"github.com/roach88/rmatrack/internal/lifecycle"
	"github.com/roach88/rmatrack/internal/logging"
	"github.com/roach88/rmatrack/internal/rma"
	"github.com/roach88/rmatrack/internal/store"
)

// app is the wired runtime shared by the record commands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  store.Store
	engine *lifecycle.Engine
	out    *OutputFormatter
}

// openApp loads config and wires logger, store, blob store and engine.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build logger", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = rma.SystemClock{}
	}

	st, err := store.Open(cfg, clock, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, WrapExitError(ExitCommandError, "failed to open record store", err)
	}

	policy := blob.PolicyOverwrite
	if cfg.Uploads.OnCollision == config.CollisionVersion {
		policy = blob.PolicyVersion
	}

	engineOpts := []lifecycle.Option{
		lifecycle.WithClock(clock),
		lifecycle.WithLogger(logger),
		lifecycle.WithBlobStore(blob.New(cfg.UploadsDir(), policy, cfg.AllowedTypes())),
		lifecycle.WithRequireOutcome(cfg.RequireOutcome()),
	}
	if opts.IDs != nil {
		engineOpts = append(engineOpts, lifecycle.WithIDGenerator(opts.IDs))
	}

	logger.Debug("record store ready",
		zap.String("backend", cfg.Store.Backend),
		zap.String("data_dir", cfg.DataDir),
		zap.String("excel_path", cfg.ExcelPath()),
	)

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		engine: lifecycle.New(st, access.NewResolver(cfg.Roles), engineOpts...),
		out:    newFormatter(opts, cmd),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing record store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// errorDetails is the details payload of a lifecycle error response.
type errorDetails struct {
	RecordID string   `json:"record_id,omitempty"`
	Identity string   `json:"identity,omitempty"`
	Fields   []string `json:"fields,omitempty"`
	Cause    string   `json:"cause,omitempty"`
}

// fail reports a lifecycle error and maps it to an exit code: persistence
// failures are command errors, every other rejection is a failure.
func (a *app) fail(err error) error {
	var le *lifecycle.Error
	if !errors.As(err, &le) {
		return WrapExitError(ExitCommandError, "command failed", err)
	}

	details := &errorDetails{RecordID: le.RecordID, Identity: le.Identity, Fields: le.Fields}
	if le.Err != nil {
		details.Cause = le.Err.Error()
	}
	if outErr := a.out.Error(string(le.Code), le.Message, details); outErr != nil {
		return WrapExitError(ExitCommandError, "failed to write output", outErr)
	}

	code := ExitFailure
	if le.Code == lifecycle.CodePersistence {
		code = ExitCommandError
	}
	exitErr := WrapExitError(code, string(le.Code), err)
	exitErr.Reported = true
	return exitErr
}

// readAttachment loads a local file as an upload. An empty path is no upload.
func readAttachment(path string) (*lifecycle.Attachment, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to read attachment %s", path), err)
	}
	return &lifecycle.Attachment{Filename: path, Data: data}, nil
}
