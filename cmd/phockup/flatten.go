package main

import (
	"github.com/spf13/cobra"

	"github.com/bshomar/phockup/pkg/copy"
	"github.com/bshomar/phockup/pkg/flatten"
)

func newFlattenCmd(opts *options) *cobra.Command {
	var keep bool

	flattenCmd := &cobra.Command{
		Use:   "flatten [source] [destination]",
		Short: "Move every file of a tree into one directory",
		Long:  "Move every file under source into destination. Files with the same name get -2, -3, ... before the extension.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := copy.ModeMove
			if keep {
				mode = copy.ModeCopy
			}

			results, err := flatten.Run(args[0], args[1], mode)
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Error != nil {
					failed++
					cmd.PrintErrf("%s: %v\n", r.Operation.SourcePath, r.Error)
					continue
				}
				if opts.verbose {
					cmd.Printf("%s %s --> %s\n", mode, r.Operation.SourcePath, r.Operation.DestinationPath)
				}
			}

			cmd.Printf("Done: %d files, %d failed\n", len(results), failed)
			return nil
		},
	}

	flattenCmd.Flags().BoolVar(&keep, "copy", false, "copy instead of move")

	return flattenCmd
}
