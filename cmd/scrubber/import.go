package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/OCAP2/scrubber/internal/config"
	filestorage "github.com/OCAP2/scrubber/internal/storage/file"
)

func newImportCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Store a YAML session in the configured database source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, logFile, err := setupLogging(cmd.ErrOrStderr(), time.Now())
			if err != nil {
				return err
			}
			defer logFile.Close()
			log := logs.Logger()

			srcCfg := config.GetSourceConfig()
			src, err := openSource(srcCfg, log)
			if err != nil {
				return err
			}
			defer src.Close()

			dst, ok := src.(importer)
			if !ok {
				return fmt.Errorf("import needs a database source, configured source is %q", srcCfg.Type)
			}

			sess, err := filestorage.New(filepath.Dir(args[0]), log).Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if name != "" {
				sess.Name = name
			}
			if err := dst.Import(cmd.Context(), sess); err != nil {
				return fmt.Errorf("importing %s: %w", sess.Name, err)
			}
			log.Info("Session imported", "session", sess.Name, "markers", len(sess.Markers))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d markers)\n", sess.Name, len(sess.Markers))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "session name (default is the file name)")
	return cmd
}
