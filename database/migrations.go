package database

// migration represents a single database schema migration.
type migration struct {
	Version uint
	Query   string
}

// allMigrations holds all schema changes in order.
var allMigrations = []migration{
	{
		Version: 1,
		Query: `
-- Slugs are unique per item type
CREATE UNIQUE INDEX IF NOT EXISTS idx_items_type_slug_unique ON content_items(item_type, slug);
		`,
	},
	{
		Version: 2,
		Query: `
-- Role archive pages list users by role
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
		`,
	},
}
