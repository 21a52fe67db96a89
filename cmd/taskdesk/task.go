package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tgienger/taskdesk/internal/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks in the active workspace",
}

var (
	taskAddParent   int64
	taskAddAfter    int64
	taskAddDesc     string
	taskAddPriority string
	taskAddStart    string
)

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := manager.CurrentDB()
		if err != nil {
			return err
		}

		input := models.TaskInput{Title: args[0]}
		if taskAddParent != 0 {
			input.ParentID = &taskAddParent
		}
		if taskAddDesc != "" {
			input.Description = &taskAddDesc
		}
		if taskAddPriority != "" {
			input.Priority = models.Priority(taskAddPriority)
		}
		if taskAddStart != "" {
			input.StartDate = &taskAddStart
		}

		var task *models.Task
		if taskAddAfter != 0 {
			task, err = store.CreateTaskAfter(input, taskAddAfter)
		} else {
			task, err = store.CreateTask(input)
		}
		if err != nil {
			return err
		}

		fmt.Printf("created task %d: %s\n", task.ID, task.Title)
		return nil
	},
}

var taskTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the full task tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := manager.CurrentDB()
		if err != nil {
			return err
		}

		roots, err := store.GetTree()
		if err != nil {
			return err
		}

		w := table.NewWriter()
		w.SetOutputMirror(os.Stdout)
		w.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Start", "Tags"})
		var walk func(tasks []*models.Task, depth int)
		walk = func(tasks []*models.Task, depth int) {
			for _, t := range tasks {
				w.AppendRow(table.Row{
					t.ID,
					strings.Repeat("  ", depth) + t.Title,
					t.Status,
					t.Priority,
					deref(t.StartDate),
					tagNames(t.Tags),
				})
				walk(t.Children, depth+1)
			}
		}
		walk(roots, 0)
		w.Render()
		return nil
	},
}

var (
	taskSetTitle     string
	taskSetDesc      string
	taskSetClearDesc bool
	taskSetStatus    string
	taskSetPriority  string
	taskSetPosition  int
)

var taskSetCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Update fields of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}

		store, err := manager.CurrentDB()
		if err != nil {
			return err
		}

		var u models.TaskUpdate
		if cmd.Flags().Changed("title") {
			u.Title = &taskSetTitle
		}
		if taskSetClearDesc {
			u.Description = models.Null[string]()
		} else if cmd.Flags().Changed("desc") {
			u.Description = models.Some(taskSetDesc)
		}
		if cmd.Flags().Changed("status") {
			s := models.Status(taskSetStatus)
			u.Status = &s
		}
		if cmd.Flags().Changed("priority") {
			p := models.Priority(taskSetPriority)
			u.Priority = &p
		}
		if cmd.Flags().Changed("position") {
			u.Position = &taskSetPosition
		}

		task, err := store.UpdateTask(id, u)
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("task %d not found", id)
		}

		fmt.Printf("updated task %d (%s)\n", task.ID, task.Status)
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}

		store, err := manager.CurrentDB()
		if err != nil {
			return err
		}

		status := models.StatusCompleted
		task, err := store.UpdateTask(id, models.TaskUpdate{Status: &status})
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("task %d not found", id)
		}

		fmt.Printf("completed task %d\n", task.ID)
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task and its subtree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}

		store, err := manager.CurrentDB()
		if err != nil {
			return err
		}

		deleted, err := store.DeleteTask(id)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("task %d not found", id)
		}

		fmt.Printf("deleted task %d\n", id)
		return nil
	},
}

var routineGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate due routine task instances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := manager.CurrentDB()
		if err != nil {
			return err
		}

		created, err := store.GenerateRoutineInstances(time.Now())
		if err != nil {
			return err
		}

		fmt.Printf("generated %d routine instance(s)\n", len(created))
		return nil
	},
}

var routineCmd = &cobra.Command{
	Use:   "routine",
	Short: "Manage routine task generation",
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func tagNames(tags []models.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

func init() {
	taskAddCmd.Flags().Int64Var(&taskAddParent, "parent", 0, "parent task id")
	taskAddCmd.Flags().Int64Var(&taskAddAfter, "after", 0, "insert immediately after this sibling")
	taskAddCmd.Flags().StringVar(&taskAddDesc, "desc", "", "description")
	taskAddCmd.Flags().StringVar(&taskAddPriority, "priority", "", "low|medium|high|urgent")
	taskAddCmd.Flags().StringVar(&taskAddStart, "start-date", "", "start date (YYYY-MM-DD)")

	taskSetCmd.Flags().StringVar(&taskSetTitle, "title", "", "new title")
	taskSetCmd.Flags().StringVar(&taskSetDesc, "desc", "", "new description")
	taskSetCmd.Flags().BoolVar(&taskSetClearDesc, "clear-desc", false, "clear the description")
	taskSetCmd.Flags().StringVar(&taskSetStatus, "status", "", "pending|in_progress|completed")
	taskSetCmd.Flags().StringVar(&taskSetPriority, "priority", "", "low|medium|high|urgent")
	taskSetCmd.Flags().IntVar(&taskSetPosition, "position", 0, "sibling sort position")

	taskCmd.AddCommand(taskAddCmd, taskTreeCmd, taskSetCmd, taskDoneCmd, taskRmCmd)
	routineCmd.AddCommand(routineGenerateCmd)
	rootCmd.AddCommand(taskCmd, routineCmd)
}
