// Command davsync drives the reconciler from an INI task configuration:
// load the config, run every task (or a named subset), print the
// session log.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/dvsync/davsync/internal/config"
	"github.com/dvsync/davsync/internal/credstore"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	settingsDir string
	logPath     string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "davsync",
		Short: "Two-way synchronization between a local tree and a WebDAV remote",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "davsync.ini", "path to the task configuration file")
	root.PersistentFlags().StringVar(&settingsDir, "settings-dir", "DavSyncData", "directory holding shadow state and backups")
	root.PersistentFlags().StringVar(&logPath, "log", "DavSync.log", "session log path")

	root.AddCommand(newRunCmd())
	root.AddCommand(newDaemonCmd())
	return root
}

// runTasks loads the config once and runs every task named in names (or
// every task, sorted, when names is empty), matching
// filesyncer.py's FileSyncer.sync(syncTaskList) filter.
func runTasks(names []string) error {
	tasks, err := config.Load(configPath)
	if err != nil {
		return err
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	store := credstore.NewKeychainStore()

	var failed int
	for _, name := range sortedTaskNames(tasks) {
		if len(want) > 0 && !want[name] {
			continue
		}
		fmt.Printf("Start sync for task %q\n", name)
		if err := runTask(tasks[name], logPath, settingsDir, store); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "task %q failed: %v\n", name, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d task(s) failed", failed)
	}
	return nil
}

func sortedTaskNames(tasks map[string]*config.Task) []string {
	names := make([]string, 0, len(tasks))
	for name := range tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
