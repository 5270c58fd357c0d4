package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hyobinnSeo/VoiceSync/internal/timecode"
)

func newTimecodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timecode",
		Short: "Convert between timecodes and seconds",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "parse <timecode>",
		Short: "Print a timecode as seconds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := timecode.Parse(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(seconds, 'f', -1, 64))
			return nil
		},
	})

	var short bool
	format := &cobra.Command{
		Use:   "format <seconds>",
		Short: "Print seconds as a timecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid seconds %q: %w", args[0], err)
			}
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), timecode.FormatShort(seconds))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), timecode.Format(seconds))
			}
			return nil
		},
	}
	format.Flags().BoolVar(&short, "short", false, "Use M:SS form")
	cmd.AddCommand(format)

	return cmd
}
