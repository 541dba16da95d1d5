package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"carbooking/internal/modules/staging"
)

func newListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staged reservations and drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(store *staging.Store) error {
				entries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), entries)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "KEY\tCLIENT\tSAVED AT")
				for _, e := range entries {
					client := "-"
					if e.ClientID > 0 {
						client = strconv.FormatInt(e.ClientID, 10)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", e.Key, client, e.SavedAt.UTC().Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}
}

func newShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <client-id>",
		Short: "Print the reservation staged for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := parseClientID(args[0])
			if err != nil {
				return err
			}
			return withStore(opts, func(store *staging.Store) error {
				p, err := store.Load(cmd.Context(), clientID)
				if err != nil {
					return err
				}
				if p == nil {
					return fmt.Errorf("nothing staged for client %d", clientID)
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), p)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "client:   %d\n", p.ClientID)
				fmt.Fprintf(out, "status:   %s\n", p.Status)
				fmt.Fprintf(out, "key:      %s\n", p.IdempotencyKey)
				if p.BackendID != "" {
					fmt.Fprintf(out, "backend:  %s\n", p.BackendID)
				}
				fmt.Fprintf(out, "vehicle:  %d %s\n", p.VehicleID, p.VehicleName)
				fmt.Fprintf(out, "period:   %s -> %s\n",
					p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
				fmt.Fprintf(out, "total:    %.2f\n", p.TotalPrice)
				return nil
			})
		},
	}
}

func newClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <client-id>",
		Short: "Drop the reservation staged for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := parseClientID(args[0])
			if err != nil {
				return err
			}
			return withStore(opts, func(store *staging.Store) error {
				if err := store.Clear(cmd.Context(), clientID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared client %d\n", clientID)
				return nil
			})
		},
	}
}

func newPurgeCommand(opts *RootOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete entries not saved for a while",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be > 0")
			}
			return withStore(opts, func(store *staging.Store) error {
				n, err := store.PurgeOlderThan(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), map[string]int{"removed": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age of the last save")
	return cmd
}

func withStore(opts *RootOptions, fn func(*staging.Store) error) error {
	store, release, err := opts.open()
	if err != nil {
		return err
	}
	defer release()
	return fn(store)
}

func parseClientID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid client id %q", s)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
