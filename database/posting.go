package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"msgboard/models"
	"msgboard/utils"
)

// CreateForum adds a forum or category. actorID is recorded in the mod log
// when non-zero.
func (ds *DatabaseService) CreateForum(actorID int64, in models.ForumInput) (int64, error) {
	if in.ForumType == "" {
		in.ForumType = models.ForumTypeForum
	}
	if in.Status == "" {
		in.Status = string(models.StatusOpen)
	}
	if in.ParentID > 0 {
		if _, err := ds.GetTypedItem(in.ParentID, models.TypeForum); err != nil {
			return 0, fmt.Errorf("parent forum %d: %w", in.ParentID, err)
		}
	}

	slugStr, err := ds.UniqueSlug(models.TypeForum, in.Title, 0)
	if err != nil {
		return 0, err
	}
	forum := &models.Item{
		Type:      models.TypeForum,
		Status:    models.Status(in.Status),
		ParentID:  in.ParentID,
		Title:     in.Title,
		Slug:      slugStr,
		Content:   in.Content,
		MenuOrder: in.MenuOrder,
	}
	if !models.StatusAllowed(forum.Type, forum.Status) {
		return 0, fmt.Errorf("status %q is not valid for %s", forum.Status, forum.Type)
	}

	tx, err := ds.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in CreateForum", "error", rerr)
		}
	}()

	id, err := ds.insertItem(tx, forum)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`INSERT INTO item_meta (item_id, meta_key, meta_value) VALUES (?, ?, ?), (?, ?, '0'), (?, ?, '0')`,
		id, models.MetaForumType, in.ForumType,
		id, models.MetaForumTopicCount,
		id, models.MetaForumReplyCount); err != nil {
		return 0, fmt.Errorf("failed to store forum meta: %w", err)
	}
	if actorID > 0 {
		if err := LogModAction(tx, actorID, "create_forum", id, forum.Title); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	if err := ds.setMetaTime(id, models.MetaForumActivity, models.MetaForumActivityEpoch, forum.Created); err != nil {
		return id, err
	}
	return id, nil
}

// UpdateForum edits a forum's title, description, type, status, parent and order.
func (ds *DatabaseService) UpdateForum(actorID, forumID int64, in models.ForumInput) error {
	forum, err := ds.GetTypedItem(forumID, models.TypeForum)
	if err != nil {
		return err
	}
	if in.ParentID != forum.ParentID {
		if err := ds.checkForumParent(forumID, in.ParentID); err != nil {
			return err
		}
	}
	if models.Status(in.Status) == models.StatusTrash && forum.Status != models.StatusTrash && forumID == ds.DefaultForumID() {
		return ErrDefaultForum
	}

	if in.Title != forum.Title {
		s, err := ds.UniqueSlug(models.TypeForum, in.Title, forumID)
		if err != nil {
			return err
		}
		forum.Slug = s
	}
	forum.Title, forum.Content, forum.ParentID, forum.MenuOrder = in.Title, in.Content, in.ParentID, in.MenuOrder
	if in.Status != "" {
		forum.Status = models.Status(in.Status)
	}
	if err := ds.UpdateItem(forum); err != nil {
		return err
	}
	if in.ForumType != "" {
		if err := ds.SetMeta(forumID, models.MetaForumType, in.ForumType); err != nil {
			return err
		}
	}
	return ds.RecordModAction(actorID, "edit_forum", forumID, forum.Title)
}

// checkForumParent rejects a parent that is missing or that sits below
// forumID in the forum tree.
func (ds *DatabaseService) checkForumParent(forumID, parentID int64) error {
	seen := map[int64]bool{}
	for id := parentID; id > 0; {
		if id == forumID {
			return ErrForumCycle
		}
		if seen[id] {
			break
		}
		seen[id] = true
		parent, err := ds.GetTypedItem(id, models.TypeForum)
		if err != nil {
			if id == parentID {
				return fmt.Errorf("parent forum %d: %w", parentID, err)
			}
			break
		}
		id = parent.ParentID
	}
	return nil
}

// CreateTopic posts a new open topic and refreshes the affected counters.
func (ds *DatabaseService) CreateTopic(authorID int64, in models.NewTopicInput) (*models.Item, error) {
	forum, err := ds.GetTypedItem(in.ForumID, models.TypeForum)
	if err != nil {
		return nil, err
	}
	slugStr, err := ds.UniqueSlug(models.TypeTopic, in.Title, 0)
	if err != nil {
		return nil, err
	}

	topic := &models.Item{
		Type:     models.TypeTopic,
		Status:   models.StatusOpen,
		ParentID: forum.ID,
		AuthorID: authorID,
		Title:    in.Title,
		Slug:     slugStr,
		Content:  in.Content,
	}
	if _, err := ds.insertItem(ds.DB, topic); err != nil {
		return nil, err
	}

	if _, err := ds.SetTopicReplyCount(topic.ID); err != nil {
		return nil, err
	}
	if _, err := ds.SetTopicVoices(topic.ID); err != nil {
		return nil, err
	}
	if err := ds.ResetTopicLatest(topic.ID); err != nil {
		return nil, err
	}
	if err := ds.ResetTopicData(topic, true); err != nil {
		return nil, err
	}
	if in.Subscribe && authorID > 0 {
		if _, err := ds.AddUserSubscription(authorID, topic.ID); err != nil {
			return nil, err
		}
	}
	return ds.GetItem(topic.ID)
}

// CreateReply posts a new open reply to a topic and refreshes the affected counters.
func (ds *DatabaseService) CreateReply(authorID int64, in models.NewReplyInput) (*models.Item, error) {
	topic, err := ds.GetTypedItem(in.TopicID, models.TypeTopic)
	if err != nil {
		return nil, err
	}

	reply := &models.Item{
		Type:     models.TypeReply,
		Status:   models.StatusOpen,
		ParentID: topic.ID,
		AuthorID: authorID,
		Title:    "Reply To: " + topic.Title,
		Content:  in.Content,
	}
	if _, err := ds.insertItem(ds.DB, reply); err != nil {
		return nil, err
	}
	if err := ds.ResetReplyData(reply); err != nil {
		return nil, err
	}
	if in.Subscribe && authorID > 0 {
		if _, err := ds.AddUserSubscription(authorID, topic.ID); err != nil {
			return nil, err
		}
	}
	return ds.GetItem(reply.ID)
}

// SetItemStatus moves an item to a new status, logs the change and
// recounts whatever depends on it.
func (ds *DatabaseService) SetItemStatus(actorID, itemID int64, status models.Status) (*models.Item, error) {
	item, err := ds.GetItem(itemID)
	if err != nil {
		return nil, err
	}
	if !models.StatusAllowed(item.Type, status) {
		return nil, fmt.Errorf("status %q is not valid for %s", status, item.Type)
	}
	if item.Status == status {
		return item, nil
	}
	previous := item.Status

	tx, err := ds.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in SetItemStatus", "error", rerr)
		}
	}()

	if _, err := tx.Exec("UPDATE content_items SET status = ?, modified = ? WHERE id = ?", status, utils.GetSQLTime(), itemID); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	if actorID > 0 {
		details := fmt.Sprintf("%s: %s -> %s", item.Type, previous, status)
		if err := LogModAction(tx, actorID, "set_status", itemID, details); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	ds.clearItemCache(itemID)
	item.Status = status

	switch item.Type {
	case models.TypeTopic:
		err = ds.ResetTopicData(item, true)
	case models.TypeReply:
		err = ds.ResetReplyData(item)
	}
	if err != nil {
		return nil, err
	}
	return ds.GetItem(itemID)
}

// MoveTopic reparents a topic and recounts both the old and new forum.
func (ds *DatabaseService) MoveTopic(actorID, topicID, forumID int64) (*models.Item, error) {
	topic, err := ds.GetTypedItem(topicID, models.TypeTopic)
	if err != nil {
		return nil, err
	}
	if _, err := ds.GetTypedItem(forumID, models.TypeForum); err != nil {
		return nil, err
	}
	if topic.ParentID == forumID {
		return topic, nil
	}
	oldTopic := *topic

	tx, err := ds.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in MoveTopic", "error", rerr)
		}
	}()
	if _, err := tx.Exec("UPDATE content_items SET parent_id = ?, modified = ? WHERE id = ?", forumID, utils.GetSQLTime(), topicID); err != nil {
		return nil, fmt.Errorf("failed to move topic: %w", err)
	}
	if err := LogModAction(tx, actorID, "move_topic", topicID, fmt.Sprintf("forum %d -> %d", oldTopic.ParentID, forumID)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	ds.clearItemCache(topicID)

	if err := ds.ResetTopicData(&oldTopic, true); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	moved, err := ds.GetItem(topicID)
	if err != nil {
		return nil, err
	}
	if err := ds.ResetTopicData(moved, true); err != nil {
		return nil, err
	}
	return moved, nil
}

// SetTopicType records a topic as normal, sticky or super sticky in the
// sticky option lists. A topic is in at most one of the two lists.
func (ds *DatabaseService) SetTopicType(actorID, topicID int64, topicType string) error {
	if _, err := ds.GetTypedItem(topicID, models.TypeTopic); err != nil {
		return err
	}
	sticky, err := ds.GetOptionIDs(models.OptionStickyTopics)
	if err != nil {
		return err
	}
	super, err := ds.GetOptionIDs(models.OptionSuperStickyTopics)
	if err != nil {
		return err
	}
	sticky = utils.RemoveID(sticky, topicID)
	super = utils.RemoveID(super, topicID)

	switch topicType {
	case models.TopicTypeNormal:
	case models.TopicTypeSticky:
		sticky = append([]int64{topicID}, sticky...)
	case models.TopicTypeSuper:
		super = append([]int64{topicID}, super...)
	default:
		return fmt.Errorf("unknown topic type %q", topicType)
	}

	if err := ds.SetOptionIDs(models.OptionStickyTopics, sticky); err != nil {
		return err
	}
	if err := ds.SetOptionIDs(models.OptionSuperStickyTopics, super); err != nil {
		return err
	}
	return ds.RecordModAction(actorID, "set_topic_type", topicID, topicType)
}

// EditPost replaces a topic's title and content, or a reply's content.
// The slug is kept so existing links stay valid. Edits by anyone other
// than the author are recorded in the mod log.
func (ds *DatabaseService) EditPost(actorID, itemID int64, in models.EditPostInput) (*models.Item, error) {
	item, err := ds.GetItem(itemID)
	if err != nil {
		return nil, err
	}
	switch item.Type {
	case models.TypeTopic:
		if in.Title == "" {
			return nil, fmt.Errorf("a topic title is required")
		}
		item.Title = in.Title
	case models.TypeReply:
	default:
		return nil, fmt.Errorf("%s items cannot be edited as posts", item.Type)
	}
	item.Content = in.Content

	if err := ds.UpdateItem(item); err != nil {
		return nil, err
	}
	if actorID > 0 && actorID != item.AuthorID {
		if err := ds.RecordModAction(actorID, "edit_"+strings.TrimPrefix(string(item.Type), "forum_"), itemID, item.Title); err != nil {
			return nil, err
		}
	}
	return ds.GetItem(itemID)
}
