package board

import (
	"msgboard/config"
	"msgboard/models"
	"msgboard/urls"
)

func (b *Board) ReplyTopicID(replyID int64) int64 {
	if reply := b.item(replyID, models.TypeReply); reply != nil {
		return reply.ParentID
	}
	return 0
}

func (b *Board) ReplyForumID(replyID int64) int64 {
	return b.TopicForumID(b.ReplyTopicID(replyID))
}

// ReplyPosition is the 1-based position of an open reply in its topic.
func (b *Board) ReplyPosition(replyID int64) int64 {
	reply := b.item(replyID, models.TypeReply)
	if reply == nil {
		return 0
	}
	pos, err := b.DB.ReplyPosition(reply)
	if err != nil {
		b.logger.Error("Failed to compute reply position", "reply", replyID, "error", err)
		return 0
	}
	return pos
}

// ReplyURL links to the reply's anchor on the topic page that lists it.
func (b *Board) ReplyURL(replyID int64) string {
	reply := b.item(replyID, models.TypeReply)
	if reply == nil {
		return ""
	}
	topic := b.item(reply.ParentID, models.TypeTopic)
	if topic == nil {
		return ""
	}
	page := urls.PageOf(int(b.ReplyPosition(replyID)), config.RepliesPerPage)
	return b.Paths.ReplyURL(topic.Slug, page, reply.ID)
}
