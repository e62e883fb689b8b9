package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/dataset-translator/internal/checkpoint"
	"github.com/MimeLyc/dataset-translator/internal/service"
)

func newCombineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "combine <checkpoint_location> <out_dir>",
		Short: "Concatenate checkpoints into one JSON Lines file per fold",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			folds, err := service.Combine(checkpoint.NewStore(args[0]), args[1])
			if err != nil {
				return err
			}
			for _, f := range folds {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", f.Fold, f.Records, f.Path)
			}
			return nil
		},
	}
}
