package db

import (
	"database/sql"

	"github.com/tgienger/taskdesk/internal/models"
)

// GetOrCreateTag returns the tag with the given name, creating it when it
// does not exist. Names are unique; colors only apply on creation.
func (db *DB) GetOrCreateTag(name, color, textColor string) (*models.Tag, error) {
	existing, err := db.GetTagByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if color == "" {
		color = "#6b7280"
	}
	if textColor == "" {
		textColor = "#ffffff"
	}

	result, err := db.Exec("INSERT INTO tags (name, color, text_color) VALUES (?, ?, ?)", name, color, textColor)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetTag(id)
}

// GetTag retrieves a tag by ID. Returns nil when the tag does not exist.
func (db *DB) GetTag(id int64) (*models.Tag, error) {
	t := &models.Tag{}
	err := db.QueryRow("SELECT id, name, color, text_color, created_at FROM tags WHERE id = ?", id).
		Scan(&t.ID, &t.Name, &t.Color, &t.TextColor, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTagByName retrieves a tag by its unique name. Returns nil when absent.
func (db *DB) GetTagByName(name string) (*models.Tag, error) {
	t := &models.Tag{}
	err := db.QueryRow("SELECT id, name, color, text_color, created_at FROM tags WHERE name = ?", name).
		Scan(&t.ID, &t.Name, &t.Color, &t.TextColor, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTags returns all tags
func (db *DB) ListTags() ([]models.Tag, error) {
	rows, err := db.Query("SELECT id, name, color, text_color, created_at FROM tags ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.TextColor, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// UpdateTag updates a tag
func (db *DB) UpdateTag(id int64, name, color, textColor string) error {
	_, err := db.Exec("UPDATE tags SET name = ?, color = ?, text_color = ? WHERE id = ?", name, color, textColor, id)
	return err
}

// DeleteTag deletes a tag; join rows cascade.
func (db *DB) DeleteTag(id int64) (bool, error) {
	result, err := db.Exec("DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// GetTaskTags returns all tags for a task
func (db *DB) GetTaskTags(taskID int64) ([]models.Tag, error) {
	rows, err := db.Query(`
		SELECT t.id, t.name, t.color, t.text_color, t.created_at
		FROM tags t
		JOIN task_tags tt ON t.id = tt.tag_id
		WHERE tt.task_id = ?
		ORDER BY t.name
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.TextColor, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// AddTagToTask links a tag to a task. Idempotent.
func (db *DB) AddTagToTask(taskID, tagID int64) error {
	_, err := db.Exec("INSERT OR IGNORE INTO task_tags (task_id, tag_id) VALUES (?, ?)", taskID, tagID)
	return err
}

// RemoveTagFromTask removes a tag from a task. Idempotent.
func (db *DB) RemoveTagFromTask(taskID, tagID int64) error {
	_, err := db.Exec("DELETE FROM task_tags WHERE task_id = ? AND tag_id = ?", taskID, tagID)
	return err
}
