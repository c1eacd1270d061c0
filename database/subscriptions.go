package database

import (
	"fmt"
	"strconv"

	"msgboard/models"
	"msgboard/utils"
)

// GetUserSubscriptions returns the topic IDs a user is subscribed to.
func (ds *DatabaseService) GetUserSubscriptions(userID int64) ([]int64, error) {
	return ds.GetUserIDList(userID, models.UserMetaTopicSubscriptions)
}

// GetUserForumSubscriptions returns the forum IDs a user is subscribed to.
func (ds *DatabaseService) GetUserForumSubscriptions(userID int64) ([]int64, error) {
	return ds.GetUserIDList(userID, models.UserMetaForumSubscriptions)
}

// GetUserBookmarks returns the topic IDs a user has bookmarked.
func (ds *DatabaseService) GetUserBookmarks(userID int64) ([]int64, error) {
	return ds.GetUserIDList(userID, models.UserMetaTopicBookmarks)
}

func (ds *DatabaseService) IsUserSubscribedTopic(userID, topicID int64) (bool, error) {
	ids, err := ds.GetUserSubscriptions(userID)
	if err != nil {
		return false, err
	}
	return utils.ContainsID(ids, topicID), nil
}

func (ds *DatabaseService) IsUserSubscribedForum(userID, forumID int64) (bool, error) {
	ids, err := ds.GetUserForumSubscriptions(userID)
	if err != nil {
		return false, err
	}
	return utils.ContainsID(ids, forumID), nil
}

func (ds *DatabaseService) IsTopicUserBookmark(userID, topicID int64) (bool, error) {
	ids, err := ds.GetUserBookmarks(userID)
	if err != nil {
		return false, err
	}
	return utils.ContainsID(ids, topicID), nil
}

// AddUserSubscription subscribes a user to a topic. It reports false when
// the user was already subscribed.
func (ds *DatabaseService) AddUserSubscription(userID, topicID int64) (bool, error) {
	changed, err := ds.addToUserList(userID, models.UserMetaTopicSubscriptions, topicID)
	if changed {
		ds.dropListCache(models.UserMetaTopicSubscriptions, topicID)
	}
	return changed, err
}

// RemoveUserSubscription reports false when the user was not subscribed.
func (ds *DatabaseService) RemoveUserSubscription(userID, topicID int64) (bool, error) {
	changed, err := ds.removeFromUserList(userID, models.UserMetaTopicSubscriptions, topicID)
	if changed {
		ds.dropListCache(models.UserMetaTopicSubscriptions, topicID)
	}
	return changed, err
}

func (ds *DatabaseService) AddUserForumSubscription(userID, forumID int64) (bool, error) {
	return ds.addToUserList(userID, models.UserMetaForumSubscriptions, forumID)
}

func (ds *DatabaseService) RemoveUserForumSubscription(userID, forumID int64) (bool, error) {
	return ds.removeFromUserList(userID, models.UserMetaForumSubscriptions, forumID)
}

func (ds *DatabaseService) AddUserBookmark(userID, topicID int64) (bool, error) {
	changed, err := ds.addToUserList(userID, models.UserMetaTopicBookmarks, topicID)
	if changed {
		ds.dropListCache(models.UserMetaTopicBookmarks, topicID)
	}
	return changed, err
}

func (ds *DatabaseService) RemoveUserBookmark(userID, topicID int64) (bool, error) {
	changed, err := ds.removeFromUserList(userID, models.UserMetaTopicBookmarks, topicID)
	if changed {
		ds.dropListCache(models.UserMetaTopicBookmarks, topicID)
	}
	return changed, err
}

// GetTopicSubscribers returns the IDs of users subscribed to a topic.
func (ds *DatabaseService) GetTopicSubscribers(topicID int64) ([]int64, error) {
	return ds.usersWithListEntry(models.UserMetaTopicSubscriptions, topicID)
}

// GetTopicBookmarkers returns the IDs of users who bookmarked a topic.
func (ds *DatabaseService) GetTopicBookmarkers(topicID int64) ([]int64, error) {
	return ds.usersWithListEntry(models.UserMetaTopicBookmarks, topicID)
}

func (ds *DatabaseService) addToUserList(userID int64, key string, id int64) (bool, error) {
	if userID <= 0 || id <= 0 {
		return false, nil
	}
	ids, err := ds.GetUserIDList(userID, key)
	if err != nil {
		return false, err
	}
	if utils.ContainsID(ids, id) {
		return false, nil
	}
	if err := ds.SetUserMeta(userID, key, utils.JoinIDList(append(ids, id))); err != nil {
		return false, err
	}
	return true, nil
}

func (ds *DatabaseService) removeFromUserList(userID int64, key string, id int64) (bool, error) {
	if userID <= 0 || id <= 0 {
		return false, nil
	}
	ids, err := ds.GetUserIDList(userID, key)
	if err != nil {
		return false, err
	}
	if !utils.ContainsID(ids, id) {
		return false, nil
	}
	ids = utils.RemoveID(ids, id)
	if len(ids) == 0 {
		return true, ds.DeleteUserMeta(userID, key)
	}
	return true, ds.SetUserMeta(userID, key, utils.JoinIDList(ids))
}

// usersWithListEntry finds users whose comma list under key contains id.
// Results are cached per id until a list containing it changes.
func (ds *DatabaseService) usersWithListEntry(key string, id int64) ([]int64, error) {
	if id <= 0 {
		return nil, nil
	}
	ds.cacheMu.RLock()
	cached, ok := ds.listCache(key)[id]
	ds.cacheMu.RUnlock()
	if ok {
		return append([]int64(nil), cached...), nil
	}

	rows, err := ds.DB.Query(`SELECT user_id FROM user_meta
		WHERE meta_key = ? AND (',' || REPLACE(meta_value, ' ', '') || ',') LIKE ?
		ORDER BY user_id ASC`, key, "%,"+strconv.FormatInt(id, 10)+",%")
	if err != nil {
		return nil, fmt.Errorf("failed to query %s for %d: %w", key, id, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in usersWithListEntry", "error", err)
		}
	}()

	var users []int64
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			ds.logger.Error("Failed to scan user id", "error", err)
			continue
		}
		users = append(users, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ds.cacheMu.Lock()
	ds.listCache(key)[id] = users
	ds.cacheMu.Unlock()
	return append([]int64(nil), users...), nil
}

func (ds *DatabaseService) dropListCache(key string, id int64) {
	ds.cacheMu.Lock()
	delete(ds.listCache(key), id)
	ds.cacheMu.Unlock()
}

// listCache picks the per-topic user cache for a list key. Callers hold cacheMu.
func (ds *DatabaseService) listCache(key string) map[int64][]int64 {
	if key == models.UserMetaTopicBookmarks {
		return ds.bookmarkerCache
	}
	return ds.subscriberCache
}
