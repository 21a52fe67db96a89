package db

import (
	"database/sql"

	"github.com/tgienger/taskdesk/internal/models"
)

// CreateAttachment records a file attachment on a task.
func (db *DB) CreateAttachment(taskID int64, fileName, filePath string) (*models.Attachment, error) {
	result, err := db.Exec(`
		INSERT INTO attachments (task_id, file_name, file_path) VALUES (?, ?, ?)
	`, taskID, fileName, filePath)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetAttachment(id)
}

// GetAttachment retrieves an attachment by ID. Returns nil when absent.
func (db *DB) GetAttachment(id int64) (*models.Attachment, error) {
	a := &models.Attachment{}
	err := db.QueryRow(`
		SELECT id, task_id, file_name, file_path, created_at
		FROM attachments WHERE id = ?
	`, id).Scan(&a.ID, &a.TaskID, &a.FileName, &a.FilePath, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetTaskAttachments retrieves all attachments for a task.
func (db *DB) GetTaskAttachments(taskID int64) ([]models.Attachment, error) {
	rows, err := db.Query(`
		SELECT id, task_id, file_name, file_path, created_at
		FROM attachments
		WHERE task_id = ?
		ORDER BY created_at ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.TaskID, &a.FileName, &a.FilePath, &a.CreatedAt); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// DeleteAttachment deletes an attachment record.
func (db *DB) DeleteAttachment(id int64) (bool, error) {
	result, err := db.Exec("DELETE FROM attachments WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}
