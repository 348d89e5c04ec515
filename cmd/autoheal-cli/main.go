// Command autoheal-cli is a local operator tool for the supervisor: it
// opens the same data directory and runtime adapter the daemon uses and
// drives the Core facade in-process, the way an operator would reach for a
// one-off container action without going through the HTTP surface.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/arcane-autoheal/autoheal/internal/config"
	"github.com/arcane-autoheal/autoheal/internal/control"
	"github.com/arcane-autoheal/autoheal/internal/runtimeadapter/dockeradapter"
	"github.com/arcane-autoheal/autoheal/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "autoheal-cli",
	Short: "Operator CLI for the autoheal supervisor",
}

func main() {
	rootCmd.AddCommand(statusCmd, listCmd, selectCmd, deselectCmd, restartCmd, unquarantineCmd, maintenanceCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openCore() (*control.Core, error) {
	cfg := config.Load()
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	adapter := dockeradapter.New(cfg.DockerHost)
	return control.New(st, adapter), nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show fleet status",
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := openCore()
		if err != nil {
			return err
		}
		status, err := core.Status(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("total=%d monitored=%d quarantined=%d maintenance=%v\n",
			status.Total, status.Monitored, status.Quarantined, status.Maintenance)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := openCore()
		if err != nil {
			return err
		}
		views, err := core.ListContainers(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "STABLE_ID\tSTATE\tMONITORED\tQUARANTINED\tRECENT_RESTARTS")
		for _, v := range views {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%v\t%v\t%d\n", v.StableID, v.State, v.Monitored, v.Quarantined, v.RecentRestartCount)
		}
		return w.Flush()
	},
}

var selectCmd = &cobra.Command{
	Use:   "select <container>",
	Short: "Add a container to the monitored selection set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := openCore()
		if err != nil {
			return err
		}
		return core.Select(cmd.Context(), args[0])
	},
}

var deselectCmd = &cobra.Command{
	Use:   "deselect <container>",
	Short: "Exclude a container from monitoring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := openCore()
		if err != nil {
			return err
		}
		return core.Deselect(cmd.Context(), args[0])
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart <container>",
	Short: "Manually restart a container, bypassing cooldown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := openCore()
		if err != nil {
			return err
		}
		return core.ManualRestart(cmd.Context(), args[0])
	},
}

var unquarantineCmd = &cobra.Command{
	Use:   "unquarantine <container>",
	Short: "Clear a container's quarantine state and restart history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := openCore()
		if err != nil {
			return err
		}
		return core.ManualUnquarantine(cmd.Context(), args[0])
	},
}

var maintenanceOn bool

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Enable or disable maintenance mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := openCore()
		if err != nil {
			return err
		}
		if err := core.SetMaintenance(maintenanceOn); err != nil {
			return err
		}
		fmt.Printf("maintenance=%v\n", maintenanceOn)
		return nil
	},
}

func init() {
	maintenanceCmd.Flags().BoolVar(&maintenanceOn, "enable", false, "enable maintenance mode (pass --enable=false to disable)")
}
