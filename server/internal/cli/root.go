package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/qrledger/qrledger/server/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	StorePath string
	Malformed string // "fail" | "skip"
	Timeout   time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the qrledger CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "qrledger",
		Short: "qrledger - inspect and edit the QR record store",
		Long:  "Operator tool for the flat-file record store behind the QR code generator.",
		// main reports errors itself; cobra printing them too would duplicate.
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return &ExitError{
					Code:    ExitCommandError,
					Message: fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats),
				}
			}
			if _, err := store.ParsePolicy(opts.Malformed); err != nil {
				return &ExitError{Code: ExitCommandError, Message: "invalid --malformed", Err: err}
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.StorePath, "store", "BD.txt", "path to the record file")
	cmd.PersistentFlags().StringVar(&opts.Malformed, "malformed", "fail", "malformed line policy (fail|skip)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", store.DefaultTimeout, "bound on lock wait and file I/O")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

// openStore builds a Store from the global flags. check overrides the policy.
func openStore(opts *RootOptions, policy store.Policy) *store.Store {
	return store.New(opts.StorePath, store.WithPolicy(policy), store.WithTimeout(opts.Timeout))
}

// configuredPolicy returns the --malformed policy. PersistentPreRunE has
// already rejected unknown values.
func configuredPolicy(opts *RootOptions) store.Policy {
	p, _ := store.ParsePolicy(opts.Malformed)
	return p
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
