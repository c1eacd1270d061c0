package board

import (
	"fmt"
	"strings"

	"msgboard/caps"
	"msgboard/config"
	"msgboard/database"
	"msgboard/models"

	"github.com/gorilla/feeds"
)

// TopicFeed builds an RSS/Atom feed of a topic's most recent open replies.
// baseURL is the scheme and host prepended to board paths.
func (b *Board) TopicFeed(v Viewer, topic *models.Item, baseURL string) (*feeds.Feed, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	replies, err := b.DB.ListItems(database.ItemQuery{
		Type:      models.TypeReply,
		ParentIDs: []int64{topic.ID},
		Statuses:  models.CountedReplyStatuses,
		OrderBy:   database.OrderCreatedDesc,
		Limit:     config.FeedItemLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("load replies for feed: %w", err)
	}

	feed := &feeds.Feed{
		Title:       topic.Title,
		Link:        &feeds.Link{Href: baseURL + b.Paths.TopicURL(topic.Slug)},
		Description: Excerpt(topic.Content, 200),
		Created:     topic.Created,
		Updated:     topic.Created,
	}
	if author, err := b.DB.GetUser(topic.AuthorID); err == nil {
		feed.Author = &feeds.Author{Name: author.Name()}
	}

	for _, r := range replies {
		if !b.Can(v, caps.ReplyCaps.ReadPost, r.ID) {
			continue
		}
		item := &feeds.Item{
			Id:          fmt.Sprintf("%s-reply-%d", config.RootSlug, r.ID),
			Title:       r.Title,
			Link:        &feeds.Link{Href: baseURL + b.ReplyURL(r.ID)},
			Description: Excerpt(r.Content, 200),
			Content:     FormatContent(r.Content),
			Created:     r.Created,
		}
		if author, err := b.DB.GetUser(r.AuthorID); err == nil {
			item.Author = &feeds.Author{Name: author.Name()}
		}
		if r.Created.After(feed.Updated) {
			feed.Updated = r.Created
		}
		feed.Items = append(feed.Items, item)
	}
	return feed, nil
}
