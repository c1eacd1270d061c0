// msgboard/models/models.go
package models

import (
	"time"
)

// --- Content Item Kinds & Statuses ---

type ItemType string

const (
	TypeForum ItemType = "forum"
	TypeTopic ItemType = "forum_topic"
	TypeReply ItemType = "forum_reply"
)

type Status string

const (
	StatusOpen    Status = "open"
	StatusClose   Status = "close"
	StatusPublish Status = "publish"
	StatusPrivate Status = "private"
	StatusHidden  Status = "hidden"
	StatusSpam    Status = "spam"
	StatusTrash   Status = "trash"
)

// PublicTopicStatuses are the topic statuses counted toward forum totals.
var PublicTopicStatuses = []Status{StatusOpen, StatusClose}

// CountedReplyStatuses are the reply statuses counted toward topic totals.
var CountedReplyStatuses = []Status{StatusOpen}

// AllowedStatuses lists the statuses each item type may take.
var AllowedStatuses = map[ItemType][]Status{
	TypeForum: {StatusOpen, StatusClose, StatusPrivate, StatusHidden, StatusTrash},
	TypeTopic: {StatusOpen, StatusClose, StatusPrivate, StatusHidden, StatusSpam, StatusTrash},
	TypeReply: {StatusOpen, StatusSpam, StatusTrash},
}

// StatusAllowed reports whether s is a valid status for items of type t.
func StatusAllowed(t ItemType, s Status) bool {
	for _, allowed := range AllowedStatuses[t] {
		if allowed == s {
			return true
		}
	}
	return false
}

// ForumStatusOpen reports whether a forum in status s accepts new content.
func ForumStatusOpen(s Status) bool {
	return s == StatusOpen || s == StatusPrivate || s == StatusHidden
}

// Forum and topic sub-types, stored as item meta.
const (
	ForumTypeForum    = "forum"
	ForumTypeCategory = "category"

	TopicTypeNormal = "normal"
	TopicTypeSticky = "sticky"
	TopicTypeSuper  = "super"
)

// --- Meta & Option Keys ---

const (
	MetaForumType          = "_forum_type"
	MetaForumTopicCount    = "_forum_topic_count"
	MetaForumReplyCount    = "_forum_reply_count"
	MetaForumLastTopicID   = "_forum_last_topic_id"
	MetaForumLastReplyID   = "_forum_last_reply_id"
	MetaForumActivity      = "_forum_activity_datetime"
	MetaForumActivityEpoch = "_forum_activity_datetime_epoch"

	MetaTopicReplyCount    = "_topic_reply_count"
	MetaTopicVoices        = "_topic_voices"
	MetaTopicVoiceCount    = "_topic_voice_count"
	MetaTopicLastReplyID   = "_topic_last_reply_id"
	MetaTopicActivity      = "_topic_activity_datetime"
	MetaTopicActivityEpoch = "_topic_activity_datetime_epoch"

	UserMetaTopicSubscriptions = "_topic_subscriptions"
	UserMetaForumSubscriptions = "_forum_subscriptions"
	UserMetaTopicBookmarks     = "_topic_bookmarks"
	UserMetaTopicCount         = "_topic_count"
	UserMetaReplyCount         = "_reply_count"

	OptionDefaultForumID    = "mb_default_forum_id"
	OptionStickyTopics      = "mb_sticky_topics"
	OptionSuperStickyTopics = "mb_super_sticky_topics"
)

// --- Core Data Models ---

// Item is the generic persisted record behind forums, topics and replies.
type Item struct {
	ID        int64
	Type      ItemType
	Status    Status
	ParentID  int64
	AuthorID  int64
	Title     string
	Slug      string
	Content   string
	MenuOrder int64
	Created   time.Time
	Modified  time.Time
}

func (i *Item) IsForum() bool { return i != nil && i.Type == TypeForum }
func (i *Item) IsTopic() bool { return i != nil && i.Type == TypeTopic }
func (i *Item) IsReply() bool { return i != nil && i.Type == TypeReply }

type User struct {
	ID           int64
	Login        string
	Nicename     string
	DisplayName  string
	Email        string
	PasswordHash string
	Role         string
	AvatarPath   string
	Registered   time.Time
}

// Name returns the display name, falling back to the login.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Login
}

// --- Moderation & System Models ---

type ModAction struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   int64     `json:"actor_id"`
	Action    string    `json:"action"`
	TargetID  int64     `json:"target_id"`
	Details   string    `json:"details"`
}

// Notification is a single outgoing subscriber notice for a new reply.
type Notification struct {
	To       []int64
	Subject  string
	Body     string
	ReplyURL string
	TopicID  int64
	ReplyID  int64
}
