package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qrledger/qrledger/server/internal/store"
)

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <url> <artifact>",
		Short: "Insert or replace one record",
		Long: `Insert or replace the record for key.

Any existing line for key is removed and the new record is appended at the
end of the file. No QR image is generated.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := store.Record{Key: args[0], URL: args[1], Artifact: args[2]}
			return runPut(rootOpts, rec, cmd)
		},
	}
}

func runPut(opts *RootOptions, rec store.Record, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	st := openStore(opts, configuredPolicy(opts))
	f.VerboseLog("Upserting %q into %s", rec.Key, st.Path())

	if err := st.Upsert(cmd.Context(), rec); err != nil {
		return f.storeFailure("put failed", err)
	}
	return f.Success(fmt.Sprintf("✓ %s\n", rec.String()), rec)
}
