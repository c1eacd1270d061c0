package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"msgboard/models"
	"msgboard/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const itemColumns = "id, item_type, status, parent_id, author_id, title, slug, content, menu_order, created, modified"

// Item orderings accepted by ItemQuery.
const (
	OrderCreatedAsc    = "created_asc"
	OrderCreatedDesc   = "created_desc"
	OrderMenuOrderAsc  = "menu_order_asc"
	OrderMenuOrderDesc = "menu_order_desc"
	OrderTitleAsc      = "title_asc"
)

var orderClauses = map[string]string{
	OrderCreatedAsc:    "created ASC, id ASC",
	OrderCreatedDesc:   "created DESC, id DESC",
	OrderMenuOrderAsc:  "menu_order ASC, id ASC",
	OrderMenuOrderDesc: "menu_order DESC, id DESC",
	OrderTitleAsc:      "title ASC, id ASC",
}

// ItemQuery filters content items. Zero values mean "any".
type ItemQuery struct {
	Type      models.ItemType
	ParentIDs []int64
	Statuses  []models.Status
	AuthorID  int64
	IDs       []int64
	ExcludeID []int64
	OrderBy   string
	Limit     int
	Offset    int
}

func (q ItemQuery) where() (string, []any) {
	var clauses []string
	var args []any
	if q.Type != "" {
		clauses = append(clauses, "item_type = ?")
		args = append(args, q.Type)
	}
	if len(q.ParentIDs) > 0 {
		clauses = append(clauses, "parent_id IN ("+placeholders(len(q.ParentIDs))+")")
		for _, id := range q.ParentIDs {
			args = append(args, id)
		}
	}
	if len(q.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(q.Statuses))+")")
		for _, s := range q.Statuses {
			args = append(args, s)
		}
	}
	if q.AuthorID > 0 {
		clauses = append(clauses, "author_id = ?")
		args = append(args, q.AuthorID)
	}
	if q.IDs != nil {
		if len(q.IDs) == 0 {
			// An explicit empty ID set matches nothing.
			clauses = append(clauses, "0")
		} else {
			clauses = append(clauses, "id IN ("+placeholders(len(q.IDs))+")")
			for _, id := range q.IDs {
				args = append(args, id)
			}
		}
	}
	if len(q.ExcludeID) > 0 {
		clauses = append(clauses, "id NOT IN ("+placeholders(len(q.ExcludeID))+")")
		for _, id := range q.ExcludeID {
			args = append(args, id)
		}
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return "?" + strings.Repeat(",?", n-1)
}

func scanItem(row interface{ Scan(...any) error }) (models.Item, error) {
	var it models.Item
	err := row.Scan(&it.ID, &it.Type, &it.Status, &it.ParentID, &it.AuthorID, &it.Title, &it.Slug, &it.Content, &it.MenuOrder, &it.Created, &it.Modified)
	return it, err
}

// GetItem fetches a content item by ID, using the instance's cache.
func (ds *DatabaseService) GetItem(id int64) (*models.Item, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	ds.cacheMu.RLock()
	cached, ok := ds.itemCache[id]
	ds.cacheMu.RUnlock()
	if ok {
		return &cached, nil
	}

	it, err := scanItem(ds.DB.QueryRow("SELECT "+itemColumns+" FROM content_items WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error getting item %d: %w", id, err)
	}

	ds.cacheMu.Lock()
	ds.itemCache[id] = it
	ds.cacheMu.Unlock()
	return &it, nil
}

// GetTypedItem fetches an item and checks its type.
func (ds *DatabaseService) GetTypedItem(id int64, t models.ItemType) (*models.Item, error) {
	it, err := ds.GetItem(id)
	if err != nil {
		return nil, err
	}
	if it.Type != t {
		return nil, ErrNotFound
	}
	return it, nil
}

// GetItemBySlug resolves a slug of the given type.
func (ds *DatabaseService) GetItemBySlug(t models.ItemType, itemSlug string) (*models.Item, error) {
	var id int64
	err := ds.DB.QueryRow("SELECT id FROM content_items WHERE item_type = ? AND slug = ?", t, itemSlug).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error resolving slug %q: %w", itemSlug, err)
	}
	return ds.GetItem(id)
}

// ListItems returns the items matching q.
func (ds *DatabaseService) ListItems(q ItemQuery) ([]models.Item, error) {
	where, args := q.where()
	query := "SELECT " + itemColumns + " FROM content_items" + where
	order, ok := orderClauses[q.OrderBy]
	if !ok {
		order = orderClauses[OrderCreatedAsc]
	}
	query += " ORDER BY " + order
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := ds.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in ListItems", "error", err)
		}
	}()

	var items []models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			ds.logger.Error("Failed to scan item row", "error", err)
			continue
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CountItems counts the items matching q, ignoring order and paging.
func (ds *DatabaseService) CountItems(q ItemQuery) (int64, error) {
	return countItems(ds.DB, q)
}

func countItems(db querier, q ItemQuery) (int64, error) {
	where, args := q.where()
	var n int64
	if err := db.QueryRow("SELECT COUNT(*) FROM content_items"+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// UniqueSlug builds a slug from title that no other item of type t uses.
func (ds *DatabaseService) UniqueSlug(t models.ItemType, title string, excludeID int64) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = strings.TrimPrefix(string(t), "forum_")
	}
	candidate := base
	for n := 2; ; n++ {
		var exists int
		err := ds.DB.QueryRow("SELECT COUNT(*) FROM content_items WHERE item_type = ? AND slug = ? AND id != ?", t, candidate, excludeID).Scan(&exists)
		if err != nil {
			return "", err
		}
		if exists == 0 {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

// insertItem writes a new row. Replies get their ID as slug.
func (ds *DatabaseService) insertItem(q querier, it *models.Item) (int64, error) {
	now := utils.GetSQLTime()
	if it.Created.IsZero() {
		it.Created = now
	}
	it.Modified = now
	if it.Type == models.TypeReply || it.Slug == "" {
		it.Slug = uuid.NewString()
	}

	res, err := q.Exec(`INSERT INTO content_items (item_type, status, parent_id, author_id, title, slug, content, menu_order, created, modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.Type, it.Status, it.ParentID, it.AuthorID, it.Title, it.Slug, it.Content, it.MenuOrder, it.Created, it.Modified)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s: %w", it.Type, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	it.ID = id

	if it.Type == models.TypeReply {
		it.Slug = strconv.FormatInt(id, 10)
		if _, err := q.Exec("UPDATE content_items SET slug = ? WHERE id = ?", it.Slug, id); err != nil {
			return 0, fmt.Errorf("failed to set reply slug: %w", err)
		}
	}
	return id, nil
}

// CreateItem inserts a generic item. Counters are not touched; use
// CreateTopic and CreateReply for posting.
func (ds *DatabaseService) CreateItem(it *models.Item) (int64, error) {
	if !models.StatusAllowed(it.Type, it.Status) {
		return 0, fmt.Errorf("status %q is not valid for %s", it.Status, it.Type)
	}
	if it.Type != models.TypeReply && it.Slug == "" {
		s, err := ds.UniqueSlug(it.Type, it.Title, 0)
		if err != nil {
			return 0, err
		}
		it.Slug = s
	}
	return ds.insertItem(ds.DB, it)
}

// UpdateItem saves title, content, parent, menu order and status of an existing item.
func (ds *DatabaseService) UpdateItem(it *models.Item) error {
	if !models.StatusAllowed(it.Type, it.Status) {
		return fmt.Errorf("status %q is not valid for %s", it.Status, it.Type)
	}
	it.Modified = utils.GetSQLTime()
	res, err := ds.DB.Exec(`UPDATE content_items SET status = ?, parent_id = ?, title = ?, slug = ?, content = ?, menu_order = ?, modified = ? WHERE id = ?`,
		it.Status, it.ParentID, it.Title, it.Slug, it.Content, it.MenuOrder, it.Modified, it.ID)
	ds.clearItemCache(it.ID)
	if err != nil {
		return fmt.Errorf("failed to update item %d: %w", it.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (ds *DatabaseService) setMenuOrder(id, order int64) error {
	_, err := ds.DB.Exec("UPDATE content_items SET menu_order = ? WHERE id = ?", order, id)
	ds.clearItemCache(id)
	return err
}

// SearchItems performs a full-text search over topic and reply titles and content.
func (ds *DatabaseService) SearchItems(query string, itemType models.ItemType, limit int) ([]models.Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	// Quote each term so user input cannot use FTS5 query syntax.
	terms := strings.Fields(query)
	for i, term := range terms {
		terms[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}

	q := `
		SELECT c.id, c.item_type, c.status, c.parent_id, c.author_id, c.title, c.slug, c.content, c.menu_order, c.created, c.modified
		FROM content_items c
		JOIN items_fts fts ON c.id = fts.rowid
		WHERE items_fts MATCH ?
		  AND ((c.item_type = ? AND c.status IN (?, ?)) OR (c.item_type = ? AND c.status = ?))`
	args := []any{strings.Join(terms, " "), models.TypeTopic, models.StatusOpen, models.StatusClose, models.TypeReply, models.StatusOpen}
	if itemType != "" {
		q += " AND c.item_type = ?"
		args = append(args, itemType)
	}
	q += " ORDER BY c.created DESC LIMIT ?"
	args = append(args, limit)

	rows, err := ds.DB.Query(q, args...)
	if err != nil {
		ds.logger.Error("FTS Search failed", "error", err)
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in SearchItems", "error", err)
		}
	}()

	var items []models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			ds.logger.Error("Failed to scan item during search", "error", err)
			continue
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
