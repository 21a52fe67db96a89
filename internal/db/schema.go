package db

// schemaStatements is the ordered DDL for a task database. Each entry is a
// complete, independently executable statement; the updated_at trigger is a
// single entry even though its body contains semicolons, so no runtime
// statement splitting is needed.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parent_id INTEGER NULL REFERENCES tasks(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		priority TEXT NOT NULL DEFAULT 'medium',
		start_date TEXT NULL,
		start_time TEXT NULL,
		end_date TEXT NULL,
		end_time TEXT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		expanded INTEGER NOT NULL DEFAULT 0,
		is_routine INTEGER NOT NULL DEFAULT 0,
		routine_type TEXT NULL,
		last_generated_at DATETIME NULL,
		routine_parent_id INTEGER NULL REFERENCES tasks(id) ON DELETE SET NULL,
		completed_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		color TEXT NOT NULL DEFAULT '#6b7280',
		text_color TEXT NOT NULL DEFAULT '#ffffff',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS task_tags (
		task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		UNIQUE(task_id, tag_id)
	)`,

	`CREATE TABLE IF NOT EXISTS attachments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		file_name TEXT NOT NULL,
		file_path TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tasks_parent_id ON tasks(parent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_start_date ON tasks(start_date)`,
	`CREATE INDEX IF NOT EXISTS idx_task_tags_task_id ON task_tags(task_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attachments_task_id ON attachments(task_id)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_task_id ON comments(task_id)`,

	`CREATE TRIGGER IF NOT EXISTS trg_tasks_updated_at
	AFTER UPDATE ON tasks
	FOR EACH ROW
	WHEN NEW.updated_at = OLD.updated_at
	BEGIN
		UPDATE tasks SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
	END`,
}

// migrationColumn is one additive column a current schema expects. Older
// database files gain it via ALTER TABLE on open.
type migrationColumn struct {
	table      string
	column     string
	definition string
}

// migrationColumns are applied in order by ApplyMigrations. Never remove or
// reorder entries; append new ones.
var migrationColumns = []migrationColumn{
	{"tags", "text_color", "TEXT NOT NULL DEFAULT '#ffffff'"},
	{"tasks", "is_routine", "INTEGER NOT NULL DEFAULT 0"},
	{"tasks", "routine_type", "TEXT NULL"},
	{"tasks", "last_generated_at", "DATETIME NULL"},
	{"tasks", "routine_parent_id", "INTEGER NULL REFERENCES tasks(id) ON DELETE SET NULL"},
}
