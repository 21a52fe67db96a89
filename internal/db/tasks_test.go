package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskdesk/internal/models"
)

func mustCreate(t *testing.T, d *DB, input models.TaskInput) *models.Task {
	t.Helper()
	task, err := d.CreateTask(input)
	require.NoError(t, err)
	return task
}

func setStatus(t *testing.T, d *DB, id int64, s models.Status) *models.Task {
	t.Helper()
	task, err := d.UpdateTask(id, models.TaskUpdate{Status: &s})
	require.NoError(t, err)
	require.NotNil(t, task)
	return task
}

func TestCreateTaskDefaults(t *testing.T) {
	d := openTestDB(t)

	task := mustCreate(t, d, models.TaskInput{Title: "write report"})
	require.Equal(t, models.StatusPending, task.Status)
	require.Equal(t, models.PriorityMedium, task.Priority)
	require.Equal(t, 0, task.Position)
	require.False(t, task.Expanded)
	require.Nil(t, task.ParentID)
	require.Nil(t, task.CompletedAt)
	require.False(t, task.CreatedAt.IsZero())

	_, err := d.CreateTask(models.TaskInput{Title: "   "})
	require.Error(t, err)
}

func TestGetTaskMissingReturnsNil(t *testing.T) {
	d := openTestDB(t)

	task, err := d.GetTask(999)
	require.NoError(t, err)
	require.Nil(t, task)
}

func TestRollupSimple(t *testing.T) {
	d := openTestDB(t)

	root := mustCreate(t, d, models.TaskInput{Title: "release"})
	setStatus(t, d, root.ID, models.StatusInProgress)

	a := mustCreate(t, d, models.TaskInput{Title: "a", ParentID: &root.ID})
	b := mustCreate(t, d, models.TaskInput{Title: "b", ParentID: &root.ID})

	// One of two children completed: parent unchanged.
	setStatus(t, d, a.ID, models.StatusCompleted)
	got, err := d.GetTask(root.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, got.Status)
	require.Nil(t, got.CompletedAt)

	// All children completed: parent completes with completed_at set.
	setStatus(t, d, b.ID, models.StatusCompleted)
	got, err = d.GetTask(root.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	// A child leaves completed: parent reverts to in_progress.
	setStatus(t, d, a.ID, models.StatusPending)
	got, err = d.GetTask(root.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, got.Status)
	require.Nil(t, got.CompletedAt)
}

func TestRollupPropagatesToAllAncestors(t *testing.T) {
	d := openTestDB(t)

	root := mustCreate(t, d, models.TaskInput{Title: "root"})
	mid := mustCreate(t, d, models.TaskInput{Title: "mid", ParentID: &root.ID})
	leaf1 := mustCreate(t, d, models.TaskInput{Title: "leaf1", ParentID: &mid.ID})
	leaf2 := mustCreate(t, d, models.TaskInput{Title: "leaf2", ParentID: &mid.ID})

	setStatus(t, d, leaf1.ID, models.StatusCompleted)
	setStatus(t, d, leaf2.ID, models.StatusCompleted)

	for _, id := range []int64{mid.ID, root.ID} {
		got, err := d.GetTask(id)
		require.NoError(t, err)
		require.Equal(t, models.StatusCompleted, got.Status, "task %d", id)
	}

	// Toggling a leaf back uncompletes the whole chain.
	setStatus(t, d, leaf2.ID, models.StatusInProgress)
	for _, id := range []int64{mid.ID, root.ID} {
		got, err := d.GetTask(id)
		require.NoError(t, err)
		require.Equal(t, models.StatusInProgress, got.Status, "task %d", id)
	}

	// Toggle sequences end in the same state regardless of order.
	setStatus(t, d, leaf2.ID, models.StatusCompleted)
	setStatus(t, d, leaf1.ID, models.StatusPending)
	setStatus(t, d, leaf1.ID, models.StatusCompleted)
	got, err := d.GetTask(root.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, got.Status)
}

func TestRollupIgnoresManualParentStatus(t *testing.T) {
	d := openTestDB(t)

	root := mustCreate(t, d, models.TaskInput{Title: "root"})
	mustCreate(t, d, models.TaskInput{Title: "child", ParentID: &root.ID})

	// Status is derived for parent tasks; a manual change is ignored but
	// other fields in the same update still apply.
	s := models.StatusCompleted
	title := "renamed"
	got, err := d.UpdateTask(root.ID, models.TaskUpdate{Status: &s, Title: &title})
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, got.Status)
	require.Equal(t, "renamed", got.Title)
}

func TestNewChildUncompletesCompletedParent(t *testing.T) {
	d := openTestDB(t)

	root := mustCreate(t, d, models.TaskInput{Title: "root"})
	child := mustCreate(t, d, models.TaskInput{Title: "child", ParentID: &root.ID})
	setStatus(t, d, child.ID, models.StatusCompleted)

	got, err := d.GetTask(root.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, got.Status)

	mustCreate(t, d, models.TaskInput{Title: "late addition", ParentID: &root.ID})
	got, err = d.GetTask(root.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, got.Status)
}

func TestDeleteLastPendingChildCompletesParent(t *testing.T) {
	d := openTestDB(t)

	root := mustCreate(t, d, models.TaskInput{Title: "root"})
	done := mustCreate(t, d, models.TaskInput{Title: "done", ParentID: &root.ID})
	pending := mustCreate(t, d, models.TaskInput{Title: "pending", ParentID: &root.ID})
	setStatus(t, d, done.ID, models.StatusCompleted)

	deleted, err := d.DeleteTask(pending.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	got, err := d.GetTask(root.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, got.Status)
}

func TestDeleteOnlyChildDoesNotCompleteParent(t *testing.T) {
	d := openTestDB(t)

	root := mustCreate(t, d, models.TaskInput{Title: "root"})
	child := mustCreate(t, d, models.TaskInput{Title: "child", ParentID: &root.ID})

	deleted, err := d.DeleteTask(child.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	// A task with no children is a leaf again, not a vacuously complete
	// parent.
	got, err := d.GetTask(root.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, got.Status)
}

func TestDeleteLastChildKeepsParentStatus(t *testing.T) {
	d := openTestDB(t)

	root := mustCreate(t, d, models.TaskInput{Title: "root"})
	child := mustCreate(t, d, models.TaskInput{Title: "child", ParentID: &root.ID})
	setStatus(t, d, child.ID, models.StatusCompleted)

	got, err := d.GetTask(root.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, got.Status)

	// Removing the last child turns the parent back into a leaf; its
	// completed status and timestamp stay as they were.
	deleted, err := d.DeleteTask(child.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	got, err = d.GetTask(root.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
}

func TestGetTreeAssembly(t *testing.T) {
	d := openTestDB(t)

	r1 := mustCreate(t, d, models.TaskInput{Title: "r1"})
	r2 := mustCreate(t, d, models.TaskInput{Title: "r2"})
	c1 := mustCreate(t, d, models.TaskInput{Title: "c1", ParentID: &r1.ID})
	mustCreate(t, d, models.TaskInput{Title: "g1", ParentID: &c1.ID})

	tag, err := d.GetOrCreateTag("home", "", "")
	require.NoError(t, err)
	require.NoError(t, d.AddTagToTask(c1.ID, tag.ID))

	roots, err := d.GetTree()
	require.NoError(t, err)
	require.Len(t, roots, 2)
	require.Equal(t, r1.ID, roots[0].ID)
	require.Equal(t, r2.ID, roots[1].ID)
	require.Len(t, roots[0].Children, 1)
	require.Equal(t, c1.ID, roots[0].Children[0].ID)
	require.Len(t, roots[0].Children[0].Children, 1)
	require.Len(t, roots[0].Children[0].Tags, 1)
	require.Equal(t, "home", roots[0].Children[0].Tags[0].Name)

	// No intervening writes: two calls yield structurally identical
	// forests.
	again, err := d.GetTree()
	require.NoError(t, err)
	require.Equal(t, flatten(roots), flatten(again))
}

// flatten renders the forest as (id,parent) pairs in traversal order.
func flatten(roots []*models.Task) []int64 {
	var out []int64
	var walk func([]*models.Task)
	walk = func(tasks []*models.Task) {
		for _, t := range tasks {
			out = append(out, t.ID)
			walk(t.Children)
		}
	}
	walk(roots)
	return out
}

func TestGetChildrenRecursive(t *testing.T) {
	d := openTestDB(t)

	root := mustCreate(t, d, models.TaskInput{Title: "root"})
	child := mustCreate(t, d, models.TaskInput{Title: "child", ParentID: &root.ID})
	mustCreate(t, d, models.TaskInput{Title: "grandchild", ParentID: &child.ID})

	children, err := d.GetChildren(root.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Len(t, children[0].Children, 1)
	require.Equal(t, "grandchild", children[0].Children[0].Title)
}

func TestCreateTaskAfterOrdering(t *testing.T) {
	d := openTestDB(t)

	p0, p1, p2 := 0, 1, 2
	mustCreate(t, d, models.TaskInput{Title: "X", Position: &p0})
	y := mustCreate(t, d, models.TaskInput{Title: "Y", Position: &p1})
	mustCreate(t, d, models.TaskInput{Title: "Z", Position: &p2})

	inserted, err := d.CreateTaskAfter(models.TaskInput{Title: "N"}, y.ID)
	require.NoError(t, err)
	require.Equal(t, y.Position+1, inserted.Position)

	roots, err := d.GetTree()
	require.NoError(t, err)
	titles := make([]string, len(roots))
	for i, r := range roots {
		titles[i] = r.Title
	}
	require.Equal(t, []string{"X", "Y", "N", "Z"}, titles)
}

func TestUpdateTaskPartialFields(t *testing.T) {
	d := openTestDB(t)

	desc := "original"
	task := mustCreate(t, d, models.TaskInput{Title: "t", Description: &desc})

	// Absent fields stay untouched.
	p := models.PriorityUrgent
	got, err := d.UpdateTask(task.ID, models.TaskUpdate{Priority: &p})
	require.NoError(t, err)
	require.Equal(t, models.PriorityUrgent, got.Priority)
	require.NotNil(t, got.Description)
	require.Equal(t, "original", *got.Description)

	// An explicit null clears the nullable field.
	got, err = d.UpdateTask(task.ID, models.TaskUpdate{Description: models.Null[string]()})
	require.NoError(t, err)
	require.Nil(t, got.Description)

	// Updating a missing task is a nil result, not an error.
	got, err = d.UpdateTask(4242, models.TaskUpdate{Priority: &p})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestUpdateTaskRejectsCycles(t *testing.T) {
	d := openTestDB(t)

	root := mustCreate(t, d, models.TaskInput{Title: "root"})
	child := mustCreate(t, d, models.TaskInput{Title: "child", ParentID: &root.ID})

	_, err := d.UpdateTask(root.ID, models.TaskUpdate{ParentID: models.Some(root.ID)})
	require.Error(t, err)

	_, err = d.UpdateTask(root.ID, models.TaskUpdate{ParentID: models.Some(child.ID)})
	require.Error(t, err)
}

func TestDeleteTaskCascades(t *testing.T) {
	d := openTestDB(t)

	root := mustCreate(t, d, models.TaskInput{Title: "root"})
	child := mustCreate(t, d, models.TaskInput{Title: "child", ParentID: &root.ID})
	grand := mustCreate(t, d, models.TaskInput{Title: "grand", ParentID: &child.ID})
	other := mustCreate(t, d, models.TaskInput{Title: "other"})

	tag, err := d.GetOrCreateTag("urgent", "#ff0000", "")
	require.NoError(t, err)
	require.NoError(t, d.AddTagToTask(grand.ID, tag.ID))
	require.NoError(t, d.AddTagToTask(other.ID, tag.ID))

	_, err = d.CreateComment(grand.ID, "note")
	require.NoError(t, err)
	_, err = d.CreateAttachment(child.ID, "a.txt", "/tmp/a.txt")
	require.NoError(t, err)

	deleted, err := d.DeleteTask(root.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	for _, id := range []int64{root.ID, child.ID, grand.ID} {
		got, err := d.GetTask(id)
		require.NoError(t, err)
		require.Nil(t, got, "task %d should be gone", id)
	}

	// The unrelated task, its tag link and the tag itself survive.
	got, err := d.GetTask(other.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Tags, 1)

	var n int
	require.NoError(t, d.QueryRow("SELECT COUNT(*) FROM comments").Scan(&n))
	require.Zero(t, n)
	require.NoError(t, d.QueryRow("SELECT COUNT(*) FROM attachments").Scan(&n))
	require.Zero(t, n)
	require.NoError(t, d.QueryRow("SELECT COUNT(*) FROM task_tags").Scan(&n))
	require.Equal(t, 1, n)

	// Deleting again reports nothing changed.
	deleted, err = d.DeleteTask(root.ID)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestGenerateRoutineInstances(t *testing.T) {
	d := openTestDB(t)

	rt := models.RoutineDaily
	tpl := mustCreate(t, d, models.TaskInput{
		Title:       "standup",
		IsRoutine:   true,
		RoutineType: &rt,
	})

	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	created, err := d.GenerateRoutineInstances(now)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, "standup", created[0].Title)
	require.NotNil(t, created[0].RoutineParentID)
	require.Equal(t, tpl.ID, *created[0].RoutineParentID)
	require.NotNil(t, created[0].StartDate)
	require.Equal(t, "2026-08-31", *created[0].StartDate)

	// Same day: nothing new.
	created, err = d.GenerateRoutineInstances(now.Add(2 * time.Hour))
	require.NoError(t, err)
	require.Empty(t, created)

	// Next day: one more.
	created, err = d.GenerateRoutineInstances(now.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, created, 1)
}

func TestGenerateRoutineInstancesCarriesEndDate(t *testing.T) {
	d := openTestDB(t)

	// A two-day template: instances keep the same span from their own
	// start date.
	rt := models.RoutineWeekly
	start, end := "2026-08-01", "2026-08-03"
	mustCreate(t, d, models.TaskInput{
		Title:       "offsite",
		IsRoutine:   true,
		RoutineType: &rt,
		StartDate:   &start,
		EndDate:     &end,
	})

	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	created, err := d.GenerateRoutineInstances(now)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.NotNil(t, created[0].EndDate)
	require.Equal(t, "2026-09-02", *created[0].EndDate)

	// No start date on the template: the end date is copied verbatim.
	rt2 := models.RoutineMonthly
	deadline := "2026-12-24"
	mustCreate(t, d, models.TaskInput{
		Title:       "deadline",
		IsRoutine:   true,
		RoutineType: &rt2,
		EndDate:     &deadline,
	})

	created, err = d.GenerateRoutineInstances(now)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.NotNil(t, created[0].EndDate)
	require.Equal(t, deadline, *created[0].EndDate)
}
