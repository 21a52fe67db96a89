package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage tags in the active workspace",
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := manager.CurrentDB()
		if err != nil {
			return err
		}

		tags, err := store.ListTags()
		if err != nil {
			return err
		}

		w := table.NewWriter()
		w.SetOutputMirror(os.Stdout)
		w.AppendHeader(table.Row{"ID", "Name", "Color"})
		for _, t := range tags {
			w.AppendRow(table.Row{t.ID, t.Name, t.Color})
		}
		w.Render()
		return nil
	},
}

var tagAddColor string

var tagAddCmd = &cobra.Command{
	Use:   "add <task-id> <name>",
	Short: "Attach a tag to a task, creating the tag if needed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}

		store, err := manager.CurrentDB()
		if err != nil {
			return err
		}

		tag, err := store.GetOrCreateTag(args[1], tagAddColor, "")
		if err != nil {
			return err
		}
		if err := store.AddTagToTask(taskID, tag.ID); err != nil {
			return err
		}

		fmt.Printf("tagged task %d with %s\n", taskID, tag.Name)
		return nil
	},
}

var tagRmCmd = &cobra.Command{
	Use:   "rm <task-id> <name>",
	Short: "Remove a tag from a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}

		store, err := manager.CurrentDB()
		if err != nil {
			return err
		}

		tag, err := store.GetTagByName(args[1])
		if err != nil {
			return err
		}
		if tag == nil {
			return fmt.Errorf("tag %q not found", args[1])
		}

		if err := store.RemoveTagFromTask(taskID, tag.ID); err != nil {
			return err
		}

		fmt.Printf("removed tag %s from task %d\n", tag.Name, taskID)
		return nil
	},
}

func init() {
	tagAddCmd.Flags().StringVar(&tagAddColor, "color", "", "background color, e.g. #ff8800")
	tagCmd.AddCommand(tagListCmd, tagAddCmd, tagRmCmd)
	rootCmd.AddCommand(tagCmd)
}
