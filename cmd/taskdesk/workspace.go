package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "Manage workspaces",
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all workspaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		workspaces, err := manager.List()
		if err != nil {
			return err
		}

		w := table.NewWriter()
		w.SetOutputMirror(os.Stdout)
		w.AppendHeader(table.Row{"", "ID", "Name", "Last Used"})
		for _, ws := range workspaces {
			active := ""
			if ws.IsActive {
				active = "*"
			}
			w.AppendRow(table.Row{active, ws.ID, ws.Name, ws.LastUsed.Format("2006-01-02 15:04")})
		}
		w.Render()
		return nil
	},
}

var workspaceCreateDesc string

var workspaceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := manager.Create(args[0], workspaceCreateDesc)
		if err != nil {
			return err
		}
		fmt.Printf("created workspace %s (%s)\n", ws.Name, ws.ID)
		return nil
	},
}

var workspaceSwitchCmd = &cobra.Command{
	Use:   "switch <id>",
	Short: "Switch the active workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := manager.Switch(args[0]); err != nil {
			return err
		}
		fmt.Printf("switched to workspace %s\n", args[0])
		return nil
	},
}

var workspaceDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a workspace and its database file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := manager.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted workspace %s\n", args[0])
		return nil
	},
}

var workspaceStatsCmd = &cobra.Command{
	Use:   "stats <id>",
	Short: "Show task and tag counts for a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := manager.Stats(args[0])
		if err != nil {
			return err
		}

		w := table.NewWriter()
		w.SetOutputMirror(os.Stdout)
		w.AppendHeader(table.Row{"Tasks", "Completed", "Tags"})
		w.AppendRow(table.Row{stats.TaskCount, stats.CompletedTaskCount, stats.TagCount})
		w.Render()
		return nil
	},
}

var workspaceExportCmd = &cobra.Command{
	Use:   "export <id> <dest>",
	Short: "Export a workspace's database file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := manager.Export(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("exported workspace %s to %s\n", args[0], args[1])
		return nil
	},
}

var workspaceImportName string

var workspaceImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a database file as a new workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := manager.Import(args[0], workspaceImportName)
		if err != nil {
			return err
		}
		fmt.Printf("imported workspace %s (%s)\n", ws.Name, ws.ID)
		return nil
	},
}

var workspaceValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check that a file is an importable task database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := manager.Validate(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s is a valid task database\n", args[0])
		return nil
	},
}

func init() {
	workspaceCreateCmd.Flags().StringVar(&workspaceCreateDesc, "desc", "", "description")
	workspaceImportCmd.Flags().StringVar(&workspaceImportName, "name", "", "workspace name (defaults to the file name)")

	workspaceCmd.AddCommand(workspaceListCmd, workspaceCreateCmd, workspaceSwitchCmd,
		workspaceDeleteCmd, workspaceStatsCmd, workspaceExportCmd, workspaceImportCmd,
		workspaceValidateCmd)
	rootCmd.AddCommand(workspaceCmd)
}
