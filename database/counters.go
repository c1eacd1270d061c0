package database

import (
	"errors"
	"fmt"

	"msgboard/models"
	"msgboard/utils"
)

// Counters are denormalized values recomputed from scratch on each call.

// SetTopicReplyCount recounts the open replies of a topic.
func (ds *DatabaseService) SetTopicReplyCount(topicID int64) (int64, error) {
	count, err := ds.CountItems(ItemQuery{
		Type:      models.TypeReply,
		ParentIDs: []int64{topicID},
		Statuses:  models.CountedReplyStatuses,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count replies for topic %d: %w", topicID, err)
	}
	return count, ds.SetMetaInt(topicID, models.MetaTopicReplyCount, count)
}

// SetTopicVoices stores the unique participants of a topic: the topic
// author first, then the authors of open replies in posting order.
func (ds *DatabaseService) SetTopicVoices(topicID int64) ([]int64, error) {
	topic, err := ds.GetTypedItem(topicID, models.TypeTopic)
	if err != nil {
		return nil, err
	}
	voices := []int64{topic.AuthorID}

	rows, err := ds.DB.Query(`SELECT author_id FROM content_items
		WHERE item_type = ? AND parent_id = ? AND status = ?
		ORDER BY created ASC, id ASC`, models.TypeReply, topicID, models.StatusOpen)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Warn("Failed to close rows in SetTopicVoices", "error", err)
		}
	}()
	for rows.Next() {
		var authorID int64
		if err := rows.Scan(&authorID); err != nil {
			return nil, fmt.Errorf("failed to scan voice for topic %d: %w", topicID, err)
		}
		voices = append(voices, authorID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Round-trip through the list helpers to drop zero IDs and duplicates.
	voices = utils.ParseIDList(utils.JoinIDList(voices))

	if err := ds.SetMeta(topicID, models.MetaTopicVoices, utils.JoinIDList(voices)); err != nil {
		return nil, err
	}
	if err := ds.SetMetaInt(topicID, models.MetaTopicVoiceCount, int64(len(voices))); err != nil {
		return nil, err
	}
	return voices, nil
}

// ResetTopicLatest points a topic's activity at its newest open reply, or
// at the topic itself when it has none, and syncs menu_order to that time.
func (ds *DatabaseService) ResetTopicLatest(topicID int64) error {
	topic, err := ds.GetTypedItem(topicID, models.TypeTopic)
	if err != nil {
		return err
	}

	replies, err := ds.ListItems(ItemQuery{
		Type:      models.TypeReply,
		ParentIDs: []int64{topicID},
		Statuses:  models.CountedReplyStatuses,
		OrderBy:   OrderCreatedDesc,
		Limit:     1,
	})
	if err != nil {
		return err
	}

	activity := topic.Created
	if len(replies) > 0 {
		activity = replies[0].Created
		if err := ds.SetMetaInt(topicID, models.MetaTopicLastReplyID, replies[0].ID); err != nil {
			return err
		}
	} else if err := ds.DeleteMeta(topicID, models.MetaTopicLastReplyID); err != nil {
		return err
	}

	if err := ds.setMetaTime(topicID, models.MetaTopicActivity, models.MetaTopicActivityEpoch, activity); err != nil {
		return err
	}
	return ds.setMenuOrder(topicID, activity.Unix())
}

// SetForumTopicCount recounts the public topics of a forum.
func (ds *DatabaseService) SetForumTopicCount(forumID int64) (int64, error) {
	count, err := ds.CountItems(ItemQuery{
		Type:      models.TypeTopic,
		ParentIDs: []int64{forumID},
		Statuses:  models.PublicTopicStatuses,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count topics for forum %d: %w", forumID, err)
	}
	return count, ds.SetMetaInt(forumID, models.MetaForumTopicCount, count)
}

// SetForumReplyCount recounts the open replies inside a forum's public topics.
func (ds *DatabaseService) SetForumReplyCount(forumID int64) (int64, error) {
	var count int64
	err := ds.DB.QueryRow(`SELECT COUNT(*) FROM content_items r
		JOIN content_items t ON r.parent_id = t.id
		WHERE r.item_type = ? AND r.status = ?
		  AND t.item_type = ? AND t.parent_id = ? AND t.status IN (?, ?)`,
		models.TypeReply, models.StatusOpen, models.TypeTopic, forumID, models.StatusOpen, models.StatusClose).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count replies for forum %d: %w", forumID, err)
	}
	return count, ds.SetMetaInt(forumID, models.MetaForumReplyCount, count)
}

// ResetForumLatest points a forum's activity at its most recently active public topic.
func (ds *DatabaseService) ResetForumLatest(forumID int64) error {
	forum, err := ds.GetTypedItem(forumID, models.TypeForum)
	if err != nil {
		return err
	}

	topics, err := ds.ListItems(ItemQuery{
		Type:      models.TypeTopic,
		ParentIDs: []int64{forumID},
		Statuses:  models.PublicTopicStatuses,
		OrderBy:   OrderMenuOrderDesc,
		Limit:     1,
	})
	if err != nil {
		return err
	}

	if len(topics) == 0 {
		for _, key := range []string{models.MetaForumLastTopicID, models.MetaForumLastReplyID} {
			if err := ds.DeleteMeta(forumID, key); err != nil {
				return err
			}
		}
		return ds.setMetaTime(forumID, models.MetaForumActivity, models.MetaForumActivityEpoch, forum.Created)
	}

	last := topics[0]
	if err := ds.SetMetaInt(forumID, models.MetaForumLastTopicID, last.ID); err != nil {
		return err
	}
	lastReply, err := ds.GetMetaInt(last.ID, models.MetaTopicLastReplyID)
	if err != nil {
		return err
	}
	if lastReply > 0 {
		err = ds.SetMetaInt(forumID, models.MetaForumLastReplyID, lastReply)
	} else {
		err = ds.DeleteMeta(forumID, models.MetaForumLastReplyID)
	}
	if err != nil {
		return err
	}

	activity, ok, err := ds.GetMetaTime(last.ID, models.MetaTopicActivity)
	if err != nil {
		return err
	}
	if !ok {
		activity = last.Created
	}
	return ds.setMetaTime(forumID, models.MetaForumActivity, models.MetaForumActivityEpoch, activity)
}

// SetUserTopicCount recounts the public topics a user has started.
func (ds *DatabaseService) SetUserTopicCount(userID int64) (int64, error) {
	if userID <= 0 {
		return 0, nil
	}
	count, err := ds.CountItems(ItemQuery{Type: models.TypeTopic, AuthorID: userID, Statuses: models.PublicTopicStatuses})
	if err != nil {
		return 0, err
	}
	return count, ds.SetUserMeta(userID, models.UserMetaTopicCount, fmt.Sprint(count))
}

// SetUserReplyCount recounts the open replies a user has written.
func (ds *DatabaseService) SetUserReplyCount(userID int64) (int64, error) {
	if userID <= 0 {
		return 0, nil
	}
	count, err := ds.CountItems(ItemQuery{Type: models.TypeReply, AuthorID: userID, Statuses: models.CountedReplyStatuses})
	if err != nil {
		return 0, err
	}
	return count, ds.SetUserMeta(userID, models.UserMetaReplyCount, fmt.Sprint(count))
}

// ResetTopicData refreshes the counters that depend on a topic's status.
// Forum latest data is only recomputed when the topic was the forum's last
// topic or resetLatest is set.
func (ds *DatabaseService) ResetTopicData(topic *models.Item, resetLatest bool) error {
	if !topic.IsTopic() {
		return ErrNotFound
	}
	forumID := topic.ParentID
	forumLastTopic, err := ds.GetMetaInt(forumID, models.MetaForumLastTopicID)
	if err != nil {
		return err
	}

	if _, err := ds.SetForumTopicCount(forumID); err != nil {
		return err
	}
	if _, err := ds.SetForumReplyCount(forumID); err != nil {
		return err
	}
	if topic.ID == forumLastTopic || resetLatest {
		if err := ds.ResetForumLatest(forumID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	_, err = ds.SetUserTopicCount(topic.AuthorID)
	return err
}

// ResetReplyData refreshes the topic, forum and author counters around a reply.
func (ds *DatabaseService) ResetReplyData(reply *models.Item) error {
	if !reply.IsReply() {
		return ErrNotFound
	}
	topic, err := ds.GetTypedItem(reply.ParentID, models.TypeTopic)
	if err != nil {
		return err
	}

	if _, err := ds.SetTopicReplyCount(topic.ID); err != nil {
		return err
	}
	if _, err := ds.SetTopicVoices(topic.ID); err != nil {
		return err
	}
	if err := ds.ResetTopicLatest(topic.ID); err != nil {
		return err
	}
	if _, err := ds.SetForumReplyCount(topic.ParentID); err != nil {
		return err
	}
	if err := ds.ResetForumLatest(topic.ParentID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	_, err = ds.SetUserReplyCount(reply.AuthorID)
	return err
}

// ReplyPosition returns the 1-based position of an open reply among the
// open replies of its topic, or 0 when the reply is not counted.
func (ds *DatabaseService) ReplyPosition(reply *models.Item) (int64, error) {
	if !reply.IsReply() || reply.Status != models.StatusOpen {
		return 0, nil
	}
	var pos int64
	err := ds.DB.QueryRow(`SELECT COUNT(*) FROM content_items
		WHERE item_type = ? AND parent_id = ? AND status = ? AND id <= ?`,
		models.TypeReply, reply.ParentID, models.StatusOpen, reply.ID).Scan(&pos)
	return pos, err
}
