package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// defaultInterval mirrors manual.py's closing "wait, then stop" cadence
// turned into an actual repeat: the original slept 15 seconds once
// before exiting; daemon mode repeats the whole sync on that cadence
// instead of exiting the process.
const defaultInterval = 15 * time.Second

func newDaemonCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "daemon [task...]",
		Short: "Run every configured task repeatedly, sleeping interval between sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			for {
				if err := runTasks(args); err != nil {
					fmt.Println(err)
				}
				fmt.Printf("Waiting %s...\n", interval)
				time.Sleep(interval)
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", defaultInterval, "time to sleep between sync sessions")
	return cmd
}
