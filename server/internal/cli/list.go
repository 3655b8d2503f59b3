package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "Print all records in file order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	st := openStore(opts, configuredPolicy(opts))
	f.VerboseLog("Reading %s (malformed=%s)", st.Path(), st.Policy())

	records, err := st.Load(cmd.Context())
	if err != nil {
		return f.storeFailure("list failed", err)
	}
	f.VerboseLog("Loaded %d record(s)", len(records))

	var b strings.Builder
	for _, rec := range records {
		b.WriteString(rec.String())
		b.WriteByte('\n')
	}
	return f.Success(b.String(), records)
}
