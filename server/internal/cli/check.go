package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qrledger/qrledger/server/internal/store"
)

// CheckResult is the JSON payload of a passing check.
type CheckResult struct {
	Path    string `json:"path"`
	Records int    `json:"records"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that every line of the record file parses",
		Long: `Load the record file under the fail-fast policy regardless of --malformed.

Exits 1 and reports the first malformed line (1-based) when the file is
corrupted, or prints the record count.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, cmd)
		},
	}
}

func runCheck(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	st := openStore(opts, store.PolicyFail)

	records, err := st.Load(cmd.Context())
	if err != nil {
		return f.storeFailure("check failed", err)
	}
	return f.Success(
		fmt.Sprintf("✓ %s: %d record(s)\n", st.Path(), len(records)),
		CheckResult{Path: st.Path(), Records: len(records)},
	)
}
