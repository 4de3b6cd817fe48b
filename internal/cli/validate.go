package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/splitcore/internal/config"
)

// ValidationResult is the output of validate.
type ValidationResult struct {
	Path   string         `json:"path"`
	Valid  bool           `json:"valid"`
	Errors []string       `json:"errors,omitempty"`
	Config *config.Config `json:"config,omitempty"`
}

// WriteText implements TextWriter.
func (r ValidationResult) WriteText(w io.Writer) error {
	if r.Valid {
		_, err := fmt.Fprintf(w, "✓ %s is valid\n", r.Path)
		return err
	}
	fmt.Fprintf(w, "✗ %s is invalid\n", r.Path)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return nil
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.cue>",
		Short: "Validate a run configuration",
		Long: `Validate a CUE run configuration against the built-in schema.

Reports every constraint violation with its source position. With
--verbose the resolved configuration, defaults included, is printed.

Exit codes:
  0 - Configuration is valid
  1 - Configuration violates the schema
  2 - File cannot be read`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "config not found", err)
	}
	if err != nil {
		result := ValidationResult{Path: path, Errors: config.Errors(err)}
		if ferr := formatter.Success(result); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "invalid config", err)
	}

	formatter.VerboseLog("resolved: frames=%d producers=%d policy=%s", cfg.Frames, cfg.Producers, cfg.Policy)

	result := ValidationResult{Path: path, Valid: true}
	if opts.Verbose || opts.Format == "json" {
		result.Config = &cfg
	}
	return formatter.Success(result)
}
