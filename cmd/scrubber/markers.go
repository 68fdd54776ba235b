package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/OCAP2/scrubber/internal/cache"
	"github.com/OCAP2/scrubber/internal/config"
	"github.com/OCAP2/scrubber/internal/timeline"
)

func newMarkersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "markers <session>",
		Short: "List the markers of a session in timeline order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, logFile, err := setupLogging(cmd.ErrOrStderr(), time.Now())
			if err != nil {
				return err
			}
			defer logFile.Close()

			src, err := openSource(config.GetSourceConfig(), logs.Logger())
			if err != nil {
				return err
			}
			defer src.Close()

			sess, err := src.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tl, err := sessionTimeline(sess)
			if err != nil {
				return err
			}

			idx := cache.NewMarkerIndex()
			for _, m := range sess.Markers {
				idx.Upsert(m)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "POSITION\tIMPORTANCE\tDETAIL")
			for _, m := range idx.Markers() {
				fmt.Fprintf(w, "%g\t%s\t%s\n", m.Position, m.Importance, timeline.DetailText(tl, m))
			}
			return w.Flush()
		},
	}
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List the sessions available in the configured source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, logFile, err := setupLogging(cmd.ErrOrStderr(), time.Now())
			if err != nil {
				return err
			}
			defer logFile.Close()

			src, err := openSource(config.GetSourceConfig(), logs.Logger())
			if err != nil {
				return err
			}
			defer src.Close()

			names, err := src.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
