package board

import (
	"msgboard/config"
	"msgboard/models"
	"msgboard/urls"
	"msgboard/utils"
)

// Topic labels.
const (
	LabelSticky = "sticky"
	LabelSuper  = "super-sticky"
	LabelClosed = "closed"
)

// IsTopicOpen reports whether new replies are accepted: the topic and its
// forum must both be open.
func (b *Board) IsTopicOpen(topicID int64) bool {
	topic := b.item(topicID, models.TypeTopic)
	if topic == nil {
		return false
	}
	return topic.Status == models.StatusOpen && b.IsForumOpen(topic.ParentID)
}

func (b *Board) IsTopicClosed(topicID int64) bool {
	topic := b.item(topicID, models.TypeTopic)
	return topic != nil && topic.Status == models.StatusClose
}

func (b *Board) IsTopicSpam(topicID int64) bool {
	topic := b.item(topicID, models.TypeTopic)
	return topic != nil && topic.Status == models.StatusSpam
}

func (b *Board) IsTopicTrash(topicID int64) bool {
	topic := b.item(topicID, models.TypeTopic)
	return topic != nil && topic.Status == models.StatusTrash
}

func (b *Board) stickyList(option string) []int64 {
	ids, err := b.DB.GetOptionIDs(option)
	if err != nil {
		b.logger.Error("Failed to read sticky list", "option", option, "error", err)
	}
	return ids
}

// IsTopicSuperSticky reports whether the topic is pinned board-wide.
func (b *Board) IsTopicSuperSticky(topicID int64) bool {
	return utils.ContainsID(b.stickyList(models.OptionSuperStickyTopics), topicID)
}

// IsTopicSticky is true for both sticky and super sticky topics.
func (b *Board) IsTopicSticky(topicID int64) bool {
	return utils.ContainsID(b.stickyList(models.OptionStickyTopics), topicID) || b.IsTopicSuperSticky(topicID)
}

// TopicType returns normal, sticky or super.
func (b *Board) TopicType(topicID int64) string {
	switch {
	case b.IsTopicSuperSticky(topicID):
		return models.TopicTypeSuper
	case utils.ContainsID(b.stickyList(models.OptionStickyTopics), topicID):
		return models.TopicTypeSticky
	}
	return models.TopicTypeNormal
}

// SetTopicType pins or unpins a topic.
func (b *Board) SetTopicType(actorID, topicID int64, topicType string) error {
	return b.DB.SetTopicType(actorID, topicID, topicType)
}

// TopicLabels lists the display labels of a topic.
func (b *Board) TopicLabels(topicID int64) []string {
	labels := []string{}
	switch b.TopicType(topicID) {
	case models.TopicTypeSuper:
		labels = append(labels, LabelSuper)
	case models.TopicTypeSticky:
		labels = append(labels, LabelSticky)
	}
	if b.IsTopicClosed(topicID) {
		labels = append(labels, LabelClosed)
	}
	return labels
}

func (b *Board) TopicReplyCount(topicID int64) int64 {
	return b.metaInt(topicID, models.MetaTopicReplyCount)
}

// TopicPostCount counts the topic itself plus its replies.
func (b *Board) TopicPostCount(topicID int64) int64 {
	return 1 + b.TopicReplyCount(topicID)
}

// TopicVoices returns the participant IDs, falling back to the author
// when the list was never computed.
func (b *Board) TopicVoices(topicID int64) []int64 {
	voices, err := b.DB.GetMetaIDs(topicID, models.MetaTopicVoices)
	if err == nil && len(voices) > 0 {
		return voices
	}
	if topic := b.item(topicID, models.TypeTopic); topic != nil && topic.AuthorID > 0 {
		return []int64{topic.AuthorID}
	}
	return nil
}

func (b *Board) TopicVoiceCount(topicID int64) int64 {
	if n := b.metaInt(topicID, models.MetaTopicVoiceCount); n > 0 {
		return n
	}
	return int64(len(b.TopicVoices(topicID)))
}

func (b *Board) TopicLastReplyID(topicID int64) int64 {
	return b.metaInt(topicID, models.MetaTopicLastReplyID)
}

// TopicLastPoster returns the author of the last reply, or the topic author.
func (b *Board) TopicLastPoster(topicID int64) int64 {
	if reply := b.item(b.TopicLastReplyID(topicID), models.TypeReply); reply != nil {
		return reply.AuthorID
	}
	if topic := b.item(topicID, models.TypeTopic); topic != nil {
		return topic.AuthorID
	}
	return 0
}

// TopicLastPostURL links to the last reply, or to the topic's own post.
func (b *Board) TopicLastPostURL(topicID int64) string {
	if lastReply := b.TopicLastReplyID(topicID); lastReply > 0 {
		if u := b.ReplyURL(lastReply); u != "" {
			return u
		}
	}
	topic := b.item(topicID, models.TypeTopic)
	if topic == nil {
		return ""
	}
	return b.Paths.TopicURL(topic.Slug) + "#post-" + itoa(topic.ID)
}

// TopicLastActive renders the time since the topic's last activity.
func (b *Board) TopicLastActive(v Viewer, topicID int64) string {
	topic := b.item(topicID, models.TypeTopic)
	if topic == nil {
		return ""
	}
	activity, ok, err := b.DB.GetMetaTime(topicID, models.MetaTopicActivity)
	if err != nil || !ok {
		activity = topic.Created
	}
	return utils.HumanTimeDiff(activity, v.Now)
}

func (b *Board) TopicForumID(topicID int64) int64 {
	if topic := b.item(topicID, models.TypeTopic); topic != nil {
		return topic.ParentID
	}
	return 0
}

// TopicPageCount returns how many pages the topic's replies span.
func (b *Board) TopicPageCount(topicID int64) int {
	n := int(b.TopicReplyCount(topicID))
	if n == 0 {
		return 1
	}
	return urls.PageOf(n, config.RepliesPerPage)
}
