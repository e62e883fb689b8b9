package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/dataset-translator/internal/checkpoint"
	"github.com/MimeLyc/dataset-translator/internal/persistence"
	"github.com/MimeLyc/dataset-translator/internal/service"
)

func newStatusCmd() *cobra.Command {
	var journalPath string
	cmd := &cobra.Command{
		Use:   "status <checkpoint_location>",
		Short: "Show the resume offset of every partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var journal service.SummaryReader
			if journalPath == "" {
				journalPath = filepath.Join(args[0], "journal.db")
			}
			if _, err := os.Stat(journalPath); err == nil {
				store, err := persistence.NewSQLiteStore(journalPath)
				if err != nil {
					return err
				}
				defer store.Close()
				journal = store
			}

			rows, err := service.Status(cmd.Context(), checkpoint.NewStore(args[0]), journal)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FOLD\tLANGUAGE\tNAME\tRESUME AT\tFLUSHES\tRECORDS\tLAST FLUSH")
			for _, r := range rows {
				flushes, records, last := "-", "-", "-"
				if r.Journal != nil {
					flushes = fmt.Sprint(r.Journal.Flushes)
					records = fmt.Sprint(r.Journal.Records)
					last = r.LastFlushAt().Local().Format(time.DateTime)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					r.Key.Fold, r.Key.SourceLanguage, r.LanguageName, r.ResumeOffset, flushes, records, last)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&journalPath, "journal", "", "run journal path (default <checkpoint_location>/journal.db)")
	return cmd
}
