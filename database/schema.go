package database

const schema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME NOT NULL
);
-- Forums, topics and replies all live here, told apart by item_type.
CREATE TABLE IF NOT EXISTS content_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_type TEXT NOT NULL,
	status TEXT NOT NULL,
	parent_id INTEGER NOT NULL DEFAULT 0,
	author_id INTEGER NOT NULL DEFAULT 0,
	title TEXT NOT NULL DEFAULT '',
	slug TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	menu_order INTEGER NOT NULL DEFAULT 0,
	created DATETIME NOT NULL,
	modified DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS item_meta (
	item_id INTEGER NOT NULL,
	meta_key TEXT NOT NULL,
	meta_value TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (item_id, meta_key),
	FOREIGN KEY (item_id) REFERENCES content_items(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	login TEXT NOT NULL UNIQUE COLLATE NOCASE,
	nicename TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	avatar_path TEXT NOT NULL DEFAULT '',
	registered DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS user_meta (
	user_id INTEGER NOT NULL,
	meta_key TEXT NOT NULL,
	meta_value TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (user_id, meta_key),
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS options (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS mod_actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	actor_id INTEGER NOT NULL,
	action TEXT NOT NULL,
	target_id INTEGER,
	details TEXT
);
-- FTS5 index over item titles and bodies
CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
	title,
	content,
	content='content_items',
	content_rowid='id'
);
CREATE TRIGGER IF NOT EXISTS items_ai AFTER INSERT ON content_items BEGIN
  INSERT INTO items_fts(rowid, title, content) VALUES (new.id, new.title, new.content);
END;
CREATE TRIGGER IF NOT EXISTS items_ad AFTER DELETE ON content_items BEGIN
  INSERT INTO items_fts(items_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
END;
CREATE TRIGGER IF NOT EXISTS items_au AFTER UPDATE OF title, content ON content_items BEGIN
  INSERT INTO items_fts(items_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
  INSERT INTO items_fts(rowid, title, content) VALUES (new.id, new.title, new.content);
END;

-- --- INDEXES ---
CREATE INDEX IF NOT EXISTS idx_items_type_parent ON content_items(item_type, parent_id, status);
CREATE INDEX IF NOT EXISTS idx_items_author ON content_items(author_id, item_type);
CREATE INDEX IF NOT EXISTS idx_items_menu_order ON content_items(item_type, menu_order DESC);
CREATE INDEX IF NOT EXISTS idx_user_meta_key ON user_meta(meta_key);
CREATE INDEX IF NOT EXISTS idx_mod_actions_time ON mod_actions(timestamp DESC);
`
