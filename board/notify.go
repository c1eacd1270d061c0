package board

import (
	"fmt"
	"log/slog"

	"msgboard/config"
	"msgboard/models"
	"msgboard/utils"
)

// LogNotifier records notifications in the log instead of mailing them.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Notify(msg models.Notification) error {
	n.Logger.Info("Dispatching reply notification",
		"topic_id", msg.TopicID,
		"reply_id", msg.ReplyID,
		"recipients", len(msg.To),
		"subject", msg.Subject,
		"url", msg.ReplyURL,
	)
	return nil
}

// NotifyTopicSubscribers tells everyone subscribed to the reply's topic,
// except the reply author, about the new reply. It reports false when
// nobody needs to be told.
func (b *Board) NotifyTopicSubscribers(topicID, replyID int64) (bool, error) {
	if b.Notifier == nil {
		return false, nil
	}
	topic := b.item(topicID, models.TypeTopic)
	reply := b.item(replyID, models.TypeReply)
	if topic == nil || reply == nil || reply.ParentID != topic.ID {
		return false, nil
	}

	subscribers, err := b.DB.GetTopicSubscribers(topic.ID)
	if err != nil {
		return false, err
	}
	recipients := utils.RemoveID(subscribers, reply.AuthorID)
	if len(recipients) == 0 {
		return false, nil
	}

	authorName := "Someone"
	if author, err := b.DB.GetUser(reply.AuthorID); err == nil {
		authorName = author.Name()
	}
	replyURL := b.ReplyURL(reply.ID)

	msg := models.Notification{
		To:       recipients,
		Subject:  fmt.Sprintf("[%s] %s", config.SiteName, PlainText(topic.Title)),
		Body:     fmt.Sprintf("%s replied:\n\n%s\n\nPost Link: %s", authorName, PlainText(reply.Content), replyURL),
		ReplyURL: replyURL,
		TopicID:  topic.ID,
		ReplyID:  reply.ID,
	}
	if err := b.Notifier.Notify(msg); err != nil {
		return false, fmt.Errorf("notify subscribers of topic %d: %w", topic.ID, err)
	}
	return true, nil
}
