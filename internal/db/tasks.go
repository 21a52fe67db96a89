package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tgienger/taskdesk/internal/models"
)

const taskColumns = `id, parent_id, title, description, status, priority,
	start_date, start_time, end_date, end_time, position, expanded,
	is_routine, routine_type, last_generated_at, routine_parent_id,
	completed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var (
		routineType     sql.NullString
		lastGeneratedAt sql.NullTime
		completedAt     sql.NullTime
	)
	err := row.Scan(&t.ID, &t.ParentID, &t.Title, &t.Description, &t.Status,
		&t.Priority, &t.StartDate, &t.StartTime, &t.EndDate, &t.EndTime,
		&t.Position, &t.Expanded, &t.IsRoutine, &routineType, &lastGeneratedAt,
		&t.RoutineParentID, &completedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if routineType.Valid {
		rt := models.RoutineType(routineType.String)
		t.RoutineType = &rt
	}
	if lastGeneratedAt.Valid {
		t.LastGeneratedAt = &lastGeneratedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

// GetTask retrieves a task by ID with its tags. Returns nil when the task
// does not exist.
func (db *DB) GetTask(id int64) (*models.Task, error) {
	row := db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tags, err := db.GetTaskTags(id)
	if err != nil {
		return nil, err
	}
	t.Tags = tags

	return t, nil
}

// GetTree loads the whole forest in two queries and assembles it in one
// linear pass: every row becomes a node in an id map, then each non-root
// node is attached to its parent's children by lookup. O(n) instead of the
// recursive refetch per node.
func (db *DB) GetTree() ([]*models.Task, error) {
	rows, err := db.Query("SELECT " + taskColumns + " FROM tasks ORDER BY parent_id, position, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.attachTags(all); err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.Task, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}

	var roots []*models.Task
	for _, t := range all {
		if t.ParentID == nil {
			roots = append(roots, t)
			continue
		}
		if parent, ok := byID[*t.ParentID]; ok {
			parent.Children = append(parent.Children, t)
		}
	}

	return roots, nil
}

// attachTags loads tags for all given tasks in a single join query.
func (db *DB) attachTags(tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	rows, err := db.Query(`
		SELECT tt.task_id, t.id, t.name, t.color, t.text_color, t.created_at
		FROM tags t
		JOIN task_tags tt ON t.id = tt.tag_id
		ORDER BY t.name
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	byTask := map[int64][]models.Tag{}
	for rows.Next() {
		var taskID int64
		var tag models.Tag
		if err := rows.Scan(&taskID, &tag.ID, &tag.Name, &tag.Color, &tag.TextColor, &tag.CreatedAt); err != nil {
			return err
		}
		byTask[taskID] = append(byTask[taskID], tag)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, t := range tasks {
		t.Tags = byTask[t.ID]
	}
	return nil
}

// GetChildren returns the direct children of a task ordered by position,
// each with its own subtree materialized. Intended for small on-demand
// subtrees; use GetTree for the whole forest.
func (db *DB) GetChildren(parentID int64) ([]*models.Task, error) {
	rows, err := db.Query("SELECT "+taskColumns+" FROM tasks WHERE parent_id = ? ORDER BY position, id", parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.attachTags(children); err != nil {
		return nil, err
	}

	for _, c := range children {
		sub, err := db.GetChildren(c.ID)
		if err != nil {
			return nil, err
		}
		c.Children = sub
	}

	return children, nil
}

// CreateTask creates a new task and returns the fully reloaded row so
// defaulted fields are populated.
func (db *DB) CreateTask(input models.TaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("task title is required")
	}

	status := input.Status
	if status == "" {
		status = models.StatusPending
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	position := 0
	if input.Position != nil {
		position = *input.Position
	}
	expanded := false
	if input.Expanded != nil {
		expanded = *input.Expanded
	}

	result, err := db.Exec(`
		INSERT INTO tasks (parent_id, title, description, status, priority,
			start_date, start_time, end_date, end_time, position, expanded,
			is_routine, routine_type, routine_parent_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, input.ParentID, input.Title, input.Description, status, priority,
		input.StartDate, input.StartTime, input.EndDate, input.EndTime,
		position, expanded, input.IsRoutine, routineTypeArg(input.RoutineType),
		input.RoutineParentID)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	// A new non-completed child can uncomplete a completed ancestor chain.
	if input.ParentID != nil {
		if err := db.propagateStatus(input.ParentID); err != nil {
			return nil, err
		}
	}

	return db.GetTask(id)
}

// CreateTaskAfter inserts a task ordered immediately after the given
// sibling: the identity-bearing insert happens first, then every later
// sibling's position shifts by one. O(siblings), fine for UI-sized lists.
func (db *DB) CreateTaskAfter(input models.TaskInput, siblingID int64) (*models.Task, error) {
	sibling, err := db.GetTask(siblingID)
	if err != nil {
		return nil, err
	}
	if sibling == nil {
		return nil, fmt.Errorf("sibling task %d not found", siblingID)
	}

	input.ParentID = sibling.ParentID
	pos := sibling.Position + 1
	input.Position = &pos

	task, err := db.CreateTask(input)
	if err != nil {
		return nil, err
	}

	if sibling.ParentID == nil {
		_, err = db.Exec(`
			UPDATE tasks SET position = position + 1
			WHERE parent_id IS NULL AND position >= ? AND id != ?
		`, pos, task.ID)
	} else {
		_, err = db.Exec(`
			UPDATE tasks SET position = position + 1
			WHERE parent_id = ? AND position >= ? AND id != ?
		`, *sibling.ParentID, pos, task.ID)
	}
	if err != nil {
		return nil, err
	}

	return db.GetTask(task.ID)
}

// UpdateTask applies a partial update and returns the reloaded task, or nil
// when the task does not exist. Absent fields are left alone; Optional
// fields set to null clear their column. A status change triggers rollup
// propagation up the ancestor chain. For a task with children the status
// field is ignored: parent status is derived from the children.
func (db *DB) UpdateTask(id int64, u models.TaskUpdate) (*models.Task, error) {
	existing, err := db.GetTask(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	var sets []string
	var args []any
	set := func(clause string, arg any) {
		sets = append(sets, clause)
		args = append(args, arg)
	}

	if u.Title != nil {
		if strings.TrimSpace(*u.Title) == "" {
			return nil, fmt.Errorf("task title is required")
		}
		set("title = ?", *u.Title)
	}
	if u.Description.Set {
		set("description = ?", u.Description.Ptr())
	}
	if u.Priority != nil {
		set("priority = ?", *u.Priority)
	}
	if u.StartDate.Set {
		set("start_date = ?", u.StartDate.Ptr())
	}
	if u.StartTime.Set {
		set("start_time = ?", u.StartTime.Ptr())
	}
	if u.EndDate.Set {
		set("end_date = ?", u.EndDate.Ptr())
	}
	if u.EndTime.Set {
		set("end_time = ?", u.EndTime.Ptr())
	}
	if u.Position != nil {
		set("position = ?", *u.Position)
	}
	if u.Expanded != nil {
		set("expanded = ?", *u.Expanded)
	}
	if u.IsRoutine != nil {
		set("is_routine = ?", *u.IsRoutine)
	}
	if u.RoutineType.Set {
		set("routine_type = ?", u.RoutineType.Ptr())
	}

	parentChanged := false
	if u.ParentID.Set {
		newParent := u.ParentID.Ptr()
		if err := db.checkParent(id, newParent); err != nil {
			return nil, err
		}
		set("parent_id = ?", newParent)
		parentChanged = true
	}

	statusChanged := false
	if u.Status != nil && *u.Status != existing.Status {
		n, err := db.childCount(id)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			set("status = ?", *u.Status)
			if *u.Status == models.StatusCompleted {
				set("completed_at = ?", time.Now().UTC())
			} else {
				set("completed_at = ?", nil)
			}
			statusChanged = true
		}
		// Parent task: status is derived, manual change ignored.
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
		query := "UPDATE tasks SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		args = append(args, id)
		if _, err := db.Exec(query, args...); err != nil {
			return nil, err
		}
	}

	// Re-derive ancestors: the old chain on a status change or move-away,
	// the new chain when the task gained a different parent.
	if statusChanged || parentChanged {
		if err := db.propagateStatus(existing.ParentID); err != nil {
			return nil, err
		}
	}
	if parentChanged && u.ParentID.Valid {
		if err := db.propagateStatus(&u.ParentID.Value); err != nil {
			return nil, err
		}
	}

	return db.GetTask(id)
}

// checkParent rejects self-references and cycles when re-parenting.
func (db *DB) checkParent(id int64, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	if *parentID == id {
		return fmt.Errorf("task %d cannot be its own parent", id)
	}
	// Walk up from the proposed parent; hitting id means a cycle.
	cur := parentID
	for cur != nil {
		if *cur == id {
			return fmt.Errorf("moving task %d under task %d would create a cycle", id, *parentID)
		}
		var next *int64
		err := db.QueryRow("SELECT parent_id FROM tasks WHERE id = ?", *cur).Scan(&next)
		if err == sql.ErrNoRows {
			return fmt.Errorf("parent task %d not found", *cur)
		}
		if err != nil {
			return err
		}
		cur = next
	}
	return nil
}

// DeleteTask deletes a task and, via schema cascade, all descendants and
// dependent tag links, attachments and comments. Returns false when nothing
// was deleted. The former parent is re-rolled afterwards: removing the last
// non-completed child can complete it.
func (db *DB) DeleteTask(id int64) (bool, error) {
	task, err := db.GetTask(id)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	result, err := db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if err := db.propagateStatus(task.ParentID); err != nil {
		return true, err
	}
	return true, nil
}

// propagateStatus walks upward from the given parent re-deriving each
// ancestor's status. A parent completes when every direct child is
// completed, and a completed parent reverts to in_progress the moment a
// child leaves completed. Stops at the first ancestor that needs no change.
// Never propagates downward and never assigns pending.
func (db *DB) propagateStatus(parentID *int64) error {
	for parentID != nil {
		parent, err := db.GetTask(*parentID)
		if err != nil {
			return err
		}
		if parent == nil {
			return nil
		}

		total, done, err := db.childStatusCounts(parent.ID)
		if err != nil {
			return err
		}

		// No children left: the task is a leaf again and keeps whatever
		// status it had. Rollup only ever rewrites parent tasks.
		if total == 0 {
			return nil
		}

		allDone := done == total
		switch {
		case allDone && parent.Status != models.StatusCompleted:
			_, err = db.Exec(`
				UPDATE tasks SET status = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP
				WHERE id = ?
			`, models.StatusCompleted, time.Now().UTC(), parent.ID)
		case !allDone && parent.Status == models.StatusCompleted:
			_, err = db.Exec(`
				UPDATE tasks SET status = ?, completed_at = NULL, updated_at = CURRENT_TIMESTAMP
				WHERE id = ?
			`, models.StatusInProgress, parent.ID)
		default:
			return nil
		}
		if err != nil {
			return err
		}

		parentID = parent.ParentID
	}
	return nil
}

func (db *DB) childCount(id int64) (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM tasks WHERE parent_id = ?", id).Scan(&n)
	return n, err
}

func (db *DB) childStatusCounts(id int64) (total, completed int, err error) {
	err = db.QueryRow(`
		SELECT COUNT(*), COUNT(CASE WHEN status = ? THEN 1 END)
		FROM tasks WHERE parent_id = ?
	`, models.StatusCompleted, id).Scan(&total, &completed)
	return total, completed, err
}

func routineTypeArg(rt *models.RoutineType) any {
	if rt == nil {
		return nil
	}
	return string(*rt)
}

// GenerateRoutineInstances creates concrete dated instances for every
// routine template that is due at now, links them back via
// routine_parent_id and stamps the template's last_generated_at.
func (db *DB) GenerateRoutineInstances(now time.Time) ([]*models.Task, error) {
	rows, err := db.Query("SELECT " + taskColumns + " FROM tasks WHERE is_routine = 1 AND routine_type IS NOT NULL")
	if err != nil {
		return nil, err
	}
	templates := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var created []*models.Task
	for _, tpl := range templates {
		if !routineDue(*tpl.RoutineType, tpl.LastGeneratedAt, now) {
			continue
		}

		date := now.Format("2006-01-02")
		instance, err := db.CreateTask(models.TaskInput{
			ParentID:        tpl.ParentID,
			Title:           tpl.Title,
			Description:     tpl.Description,
			Priority:        tpl.Priority,
			StartDate:       &date,
			StartTime:       tpl.StartTime,
			EndDate:         instanceEndDate(tpl, date),
			EndTime:         tpl.EndTime,
			RoutineParentID: &tpl.ID,
		})
		if err != nil {
			return created, err
		}

		_, err = db.Exec(`
			UPDATE tasks SET last_generated_at = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, now.UTC(), tpl.ID)
		if err != nil {
			return created, err
		}

		created = append(created, instance)
	}

	return created, nil
}

// instanceEndDate carries a template's end date onto a generated instance.
// When the template has both dates, the instance keeps the same day span
// relative to its generated start date; otherwise the end date is copied
// verbatim.
func instanceEndDate(tpl *models.Task, startDate string) *string {
	if tpl.EndDate == nil {
		return nil
	}
	if tpl.StartDate != nil {
		tplStart, err1 := time.Parse("2006-01-02", *tpl.StartDate)
		tplEnd, err2 := time.Parse("2006-01-02", *tpl.EndDate)
		start, err3 := time.Parse("2006-01-02", startDate)
		if err1 == nil && err2 == nil && err3 == nil && !tplEnd.Before(tplStart) {
			span := int(tplEnd.Sub(tplStart).Hours() / 24)
			end := start.AddDate(0, 0, span).Format("2006-01-02")
			return &end
		}
	}
	end := *tpl.EndDate
	return &end
}

// routineDue reports whether a template should generate an instance at now.
// A template that never generated is due immediately.
func routineDue(rt models.RoutineType, last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	l, n := last.UTC(), now.UTC()
	switch rt {
	case models.RoutineDaily:
		return l.Format("2006-01-02") != n.Format("2006-01-02")
	case models.RoutineWeekly:
		ly, lw := l.ISOWeek()
		ny, nw := n.ISOWeek()
		return ly != ny || lw != nw
	case models.RoutineMonthly:
		return l.Year() != n.Year() || l.Month() != n.Month()
	}
	return false
}
