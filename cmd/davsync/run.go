package main

import "github.com/spf13/cobra"

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [task...]",
		Short: "Run every configured task once, or only the named ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(args)
		},
	}
}
