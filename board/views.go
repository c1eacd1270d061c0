package board

import (
	"time"

	"msgboard/caps"
	"msgboard/models"
	"msgboard/urls"
)

// UserView is the public profile summary of a user.
type UserView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Nicename   string `json:"nicename"`
	Role       string `json:"role"`
	URL        string `json:"url"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	TopicCount int64  `json:"topic_count"`
	ReplyCount int64  `json:"reply_count"`
	Registered string `json:"registered"`
}

type ForumView struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	URL         string            `json:"url"`
	Description string            `json:"description"`
	Status      models.Status     `json:"status"`
	ForumType   string            `json:"forum_type"`
	ParentID    int64             `json:"parent_id"`
	MenuOrder   int64             `json:"menu_order"`
	Open        bool              `json:"open"`
	TopicCount  int64             `json:"topic_count"`
	ReplyCount  int64             `json:"reply_count"`
	LastTopicID int64             `json:"last_topic_id,omitempty"`
	LastReplyID int64             `json:"last_reply_id,omitempty"`
	LastActive  string            `json:"last_active"`
	Subscribed  bool              `json:"subscribed"`
	SubForums   []ForumView       `json:"sub_forums,omitempty"`
	Actions     map[string]string `json:"actions"`
}

type TopicView struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	URL         string            `json:"url"`
	Status      models.Status     `json:"status"`
	ForumID     int64             `json:"forum_id"`
	TopicType   string            `json:"topic_type"`
	Labels      []string          `json:"labels"`
	Open        bool              `json:"open"`
	Author      *UserView         `json:"author,omitempty"`
	Content     string            `json:"content,omitempty"`
	Created     time.Time         `json:"created"`
	LastActive  string            `json:"last_active"`
	ReplyCount  int64             `json:"reply_count"`
	PostCount   int64             `json:"post_count"`
	VoiceCount  int64             `json:"voice_count"`
	PageCount   int               `json:"page_count"`
	LastPoster  *UserView         `json:"last_poster,omitempty"`
	LastPostURL string            `json:"last_post_url"`
	FeedURL     string            `json:"feed_url"`
	Subscribed  bool              `json:"subscribed"`
	Bookmarked  bool              `json:"bookmarked"`
	Actions     map[string]string `json:"actions"`
}

type ReplyView struct {
	ID       int64             `json:"id"`
	TopicID  int64             `json:"topic_id"`
	URL      string            `json:"url"`
	Position int64             `json:"position"`
	Status   models.Status     `json:"status"`
	Author   *UserView         `json:"author,omitempty"`
	Content  string            `json:"content"`
	Created  time.Time         `json:"created"`
	Actions  map[string]string `json:"actions"`
}

// UserView summarizes a user. Nil and unknown users yield nil.
func (b *Board) UserView(userID int64) *UserView {
	u, err := b.DB.GetUser(userID)
	if err != nil {
		return nil
	}
	return b.UserViewOf(u)
}

func (b *Board) UserViewOf(u *models.User) *UserView {
	topics, _ := b.DB.GetUserMetaInt(u.ID, models.UserMetaTopicCount)
	replies, _ := b.DB.GetUserMetaInt(u.ID, models.UserMetaReplyCount)
	return &UserView{
		ID:         u.ID,
		Name:       u.Name(),
		Nicename:   u.Nicename,
		Role:       caps.GetRole(u.Role).DisplayName,
		URL:        b.Paths.UserURL(u.Nicename),
		AvatarURL:  u.AvatarPath,
		TopicCount: topics,
		ReplyCount: replies,
		Registered: u.Registered.UTC().Format(time.RFC3339),
	}
}

func (b *Board) ForumView(v Viewer, forum *models.Item) ForumView {
	fv := ForumView{
		ID:          forum.ID,
		Title:       forum.Title,
		Slug:        forum.Slug,
		URL:         b.Paths.ForumURL(forum.Slug, 1),
		Description: FormatContent(forum.Content),
		Status:      forum.Status,
		ForumType:   b.ForumType(forum.ID),
		ParentID:    forum.ParentID,
		MenuOrder:   forum.MenuOrder,
		Open:        b.IsForumOpen(forum.ID),
		TopicCount:  b.ForumTopicCount(forum.ID),
		ReplyCount:  b.ForumReplyCount(forum.ID),
		LastTopicID: b.ForumLastTopicID(forum.ID),
		LastReplyID: b.ForumLastReplyID(forum.ID),
		LastActive:  b.ForumLastActive(v, forum.ID),
		Actions:     map[string]string{},
	}
	if v.LoggedIn() {
		fv.Subscribed, _ = b.DB.IsUserSubscribedForum(v.UserID(), forum.ID)
		if fv.Subscribed {
			fv.Actions["unsubscribe"] = b.Paths.ActionURL(urls.ActionUnsubscribe, forum.ID, fv.URL)
		} else {
			fv.Actions["subscribe"] = b.Paths.ActionURL(urls.ActionSubscribe, forum.ID, fv.URL)
		}
	}
	if b.Can(v, caps.CreateTopics, forum.ID) {
		fv.Actions["new_topic"] = b.Paths.FormURL(urls.FormNewTopic)
	}
	if b.Can(v, caps.ForumCaps.EditPost, forum.ID) {
		fv.Actions["edit"] = b.Paths.ForumURL(forum.Slug, 1) + "edit/"
	}
	return fv
}

// TopicView renders a topic for v. redirect is where action links return to.
func (b *Board) TopicView(v Viewer, topic *models.Item, withContent bool, redirect string) TopicView {
	tv := TopicView{
		ID:          topic.ID,
		Title:       topic.Title,
		Slug:        topic.Slug,
		URL:         b.Paths.TopicURL(topic.Slug),
		Status:      topic.Status,
		ForumID:     topic.ParentID,
		TopicType:   b.TopicType(topic.ID),
		Labels:      b.TopicLabels(topic.ID),
		Open:        b.IsTopicOpen(topic.ID),
		Author:      b.UserView(topic.AuthorID),
		Created:     topic.Created,
		LastActive:  b.TopicLastActive(v, topic.ID),
		ReplyCount:  b.TopicReplyCount(topic.ID),
		PostCount:   b.TopicPostCount(topic.ID),
		VoiceCount:  b.TopicVoiceCount(topic.ID),
		PageCount:   b.TopicPageCount(topic.ID),
		LastPoster:  b.UserView(b.TopicLastPoster(topic.ID)),
		LastPostURL: b.TopicLastPostURL(topic.ID),
		FeedURL:     b.Paths.FeedURL(topic.Slug, "rss"),
		Actions:     b.topicActions(v, topic, redirect),
	}
	if withContent {
		tv.Content = FormatContent(topic.Content)
	}
	if v.LoggedIn() {
		tv.Subscribed, _ = b.DB.IsUserSubscribedTopic(v.UserID(), topic.ID)
		tv.Bookmarked, _ = b.DB.IsTopicUserBookmark(v.UserID(), topic.ID)
	}
	return tv
}

func (b *Board) topicActions(v Viewer, topic *models.Item, redirect string) map[string]string {
	actions := map[string]string{}
	if redirect == "" {
		redirect = b.Paths.TopicURL(topic.Slug)
	}
	link := func(name, action string) {
		actions[name] = b.Paths.ActionURL(action, topic.ID, redirect)
	}

	if b.Can(v, caps.TopicCaps.EditPost, topic.ID) {
		actions["edit"] = b.Paths.TopicURL(topic.Slug) + "edit/"
	}
	if b.Can(v, caps.TopicCaps.ClosePost, topic.ID) {
		switch topic.Status {
		case models.StatusOpen:
			link("close", urls.ActionClose)
		case models.StatusClose:
			link("open", urls.ActionOpen)
		}
	}
	if b.Can(v, caps.TopicCaps.SpamPost, topic.ID) {
		if topic.Status == models.StatusSpam {
			link("unspam", urls.ActionUnspam)
		} else {
			link("spam", urls.ActionSpam)
		}
	}
	if b.Can(v, caps.TopicCaps.DeletePost, topic.ID) {
		if topic.Status == models.StatusTrash {
			link("untrash", urls.ActionUntrash)
		} else {
			link("trash", urls.ActionTrash)
		}
	}
	if b.Can(v, caps.ManageForums) {
		actions["set_type"] = b.Paths.TopicURL(topic.Slug) + "type/"
		actions["move"] = b.Paths.TopicURL(topic.Slug) + "move/"
	}
	if b.Can(v, caps.CreateReplies, topic.ID) {
		actions["reply"] = b.Paths.FormURL(urls.FormNewReply)
	}
	if v.LoggedIn() {
		if ok, _ := b.DB.IsUserSubscribedTopic(v.UserID(), topic.ID); ok {
			link("unsubscribe", urls.ActionUnsubscribe)
		} else {
			link("subscribe", urls.ActionSubscribe)
		}
		if ok, _ := b.DB.IsTopicUserBookmark(v.UserID(), topic.ID); ok {
			link("unbookmark", urls.ActionUnbookmark)
		} else {
			link("bookmark", urls.ActionBookmark)
		}
	}
	return actions
}

func (b *Board) ReplyView(v Viewer, reply *models.Item, redirect string) ReplyView {
	rv := ReplyView{
		ID:       reply.ID,
		TopicID:  reply.ParentID,
		URL:      b.ReplyURL(reply.ID),
		Position: b.ReplyPosition(reply.ID),
		Status:   reply.Status,
		Author:   b.UserView(reply.AuthorID),
		Content:  FormatContent(reply.Content),
		Created:  reply.Created,
		Actions:  map[string]string{},
	}
	if redirect == "" {
		redirect = rv.URL
	}
	if b.Can(v, caps.ReplyCaps.EditPost, reply.ID) {
		rv.Actions["edit"] = b.Paths.ReplyPermalink(reply.ID) + "edit/"
	}
	if b.Can(v, caps.ReplyCaps.SpamPost, reply.ID) {
		if reply.Status == models.StatusSpam {
			rv.Actions["unspam"] = b.Paths.ActionURL(urls.ActionUnspam, reply.ID, redirect)
		} else {
			rv.Actions["spam"] = b.Paths.ActionURL(urls.ActionSpam, reply.ID, redirect)
		}
	}
	if b.Can(v, caps.ReplyCaps.DeletePost, reply.ID) {
		if reply.Status == models.StatusTrash {
			rv.Actions["untrash"] = b.Paths.ActionURL(urls.ActionUntrash, reply.ID, redirect)
		} else {
			rv.Actions["trash"] = b.Paths.ActionURL(urls.ActionTrash, reply.ID, redirect)
		}
	}
	return rv
}
