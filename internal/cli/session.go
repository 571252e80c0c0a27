package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bequest/internal/collab"
	"github.com/roach88/bequest/internal/lifecycle"
	"github.com/roach88/bequest/internal/metrics"
	"github.com/roach88/bequest/internal/store"
)

// session is an open store with an engine wired to the reference
// collaborators described by the fixtures file.
type session struct {
	store    *store.Store
	engine   *lifecycle.Engine
	collab   *collab.Set
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// newLogger builds the stderr text logger. --verbose forces debug.
func newLogger(w io.Writer, opts *RootOptions) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(opts.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openSession opens the database and starts the engine. Without a fixtures
// file only read commands work; any collaborator-backed operation needs one.
func openSession(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*session, error) {
	logger := newLogger(cmd.ErrOrStderr(), opts)

	if opts.Fixtures == "" {
		return nil, NewExitError(ExitCommandError, "no collaborator fixtures: set --fixtures or BEQUEST_FIXTURES")
	}
	fixtures, err := collab.LoadFixtures(opts.Fixtures)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load fixtures", err)
	}
	set, err := fixtures.Build(logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build collaborators", err)
	}

	if opts.Database == "" {
		return nil, NewExitError(ExitCommandError, "no database: set --db or BEQUEST_DB")
	}
	logger.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	recorder := metrics.NewRecorder()
	engineOpts := []lifecycle.Option{
		lifecycle.WithLogger(logger),
		lifecycle.WithRecorder(recorder),
	}
	if opts.Capacity > 0 {
		engineOpts = append(engineOpts, lifecycle.WithPlanCapacity(opts.Capacity))
	}
	eng, err := lifecycle.New(ctx, st, set.Collaborators(), engineOpts...)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to start engine", err)
	}

	return &session{
		store:    st,
		engine:   eng,
		collab:   set,
		recorder: recorder,
		logger:   logger,
	}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// formatter returns the output formatter for cmd.
func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// parsePlanID parses a plan id argument.
func parsePlanID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid plan id %q", s))
	}
	return id, nil
}
