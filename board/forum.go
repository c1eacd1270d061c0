package board

import (
	"strconv"

	"msgboard/models"
	"msgboard/utils"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// IsForumOpen is true for open, private and hidden forums.
func (b *Board) IsForumOpen(forumID int64) bool {
	forum := b.item(forumID, models.TypeForum)
	return forum != nil && models.ForumStatusOpen(forum.Status)
}

func (b *Board) ForumType(forumID int64) string {
	t, ok, err := b.DB.GetMeta(forumID, models.MetaForumType)
	if err != nil || !ok || t == "" {
		return models.ForumTypeForum
	}
	return t
}

// ForumTypeAllowsTopics is false for categories.
func (b *Board) ForumTypeAllowsTopics(forumID int64) bool {
	return b.ForumType(forumID) != models.ForumTypeCategory
}

func (b *Board) ForumTopicCount(forumID int64) int64 {
	return b.metaInt(forumID, models.MetaForumTopicCount)
}

func (b *Board) ForumReplyCount(forumID int64) int64 {
	return b.metaInt(forumID, models.MetaForumReplyCount)
}

func (b *Board) ForumLastTopicID(forumID int64) int64 {
	return b.metaInt(forumID, models.MetaForumLastTopicID)
}

func (b *Board) ForumLastReplyID(forumID int64) int64 {
	return b.metaInt(forumID, models.MetaForumLastReplyID)
}

// ForumLastActive renders the time since the forum's last activity.
func (b *Board) ForumLastActive(v Viewer, forumID int64) string {
	forum := b.item(forumID, models.TypeForum)
	if forum == nil {
		return ""
	}
	activity, ok, err := b.DB.GetMetaTime(forumID, models.MetaForumActivity)
	if err != nil || !ok {
		activity = forum.Created
	}
	return utils.HumanTimeDiff(activity, v.Now)
}
