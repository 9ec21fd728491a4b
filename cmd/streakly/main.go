package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	var (
		configPath string
		a          *app
	)

	rootCmd := &cobra.Command{
		Use:           "streakly",
		Short:         "Recurring task tracker with streaks and exact-time reminders",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || (cmd.HasParent() && cmd.Parent().Name() == "completion") {
				return nil
			}
			var err error
			a, err = newApp(cmd.Context(), configPath, cmd.Name() == "tui")
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a == nil {
				return nil
			}
			return a.Close()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default streakly.yaml)")

	current := func() *app { return a }
	rootCmd.AddCommand(
		addCmd(current),
		listCmd(current),
		markCmd(current),
		endCmd(current),
		deleteCmd(current),
		streakCmd(current),
		digestCmd(current),
		scheduleCmd(current),
		rearmCmd(current),
		permissionCmd(current),
		daemonCmd(current),
		tuiCmd(current),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
