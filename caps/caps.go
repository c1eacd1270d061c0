// Package caps maps meta capabilities such as "edit_topic" onto the
// primitive capabilities roles hold, walking reply -> topic -> forum.
package caps

import (
	"msgboard/models"
)

// Common capabilities.
const (
	ManageForums   = "manage_forums"
	BypassThrottle = "bypass_throttle"
	DoNotAllow     = "do_not_allow"
	Read           = "read"
)

// Primitive capabilities held by roles.
const (
	ReadForums          = "read_forums"
	ReadPrivateForums   = "read_private_forums"
	ReadHiddenForums    = "read_hidden_forums"
	CreateForums        = "create_forums"
	EditForums          = "edit_forums"
	EditOthersForums    = "edit_others_forums"
	DeleteForums        = "delete_forums"
	DeleteOthersForums  = "delete_others_forums"
	ModerateForums      = "moderate_forums"
	ReadTopics          = "read_topics"
	ReadPrivateTopics   = "read_private_topics"
	ReadHiddenTopics    = "read_hidden_topics"
	CreateTopics        = "create_topics"
	EditTopics          = "edit_topics"
	EditOthersTopics    = "edit_others_topics"
	DeleteTopics        = "delete_topics"
	DeleteOthersTopics  = "delete_others_topics"
	ModerateTopics      = "moderate_topics"
	ReadReplies         = "read_replies"
	CreateReplies       = "create_replies"
	EditReplies         = "edit_replies"
	EditOthersReplies   = "edit_others_replies"
	DeleteReplies       = "delete_replies"
	DeleteOthersReplies = "delete_others_replies"
	ModerateReplies     = "moderate_replies"
)

// Generic meta capabilities taking an item ID.
const (
	ReadPost     = "read_post"
	EditPost     = "edit_post"
	DeletePost   = "delete_post"
	ModeratePost = "moderate_post"
)

// TypeCaps translates the generic capability names for one item type.
type TypeCaps struct {
	EditPost          string
	ReadPost          string
	DeletePost        string
	ModeratePost      string
	ClosePost         string
	OpenPost          string
	SpamPost          string
	CreatePosts       string
	EditPosts         string
	EditOthersPosts   string
	ReadPrivatePosts  string
	ReadHiddenPosts   string
	Read              string
	DeletePosts       string
	DeleteOthersPosts string
	ModeratePosts     string
}

var ForumCaps = TypeCaps{
	EditPost:          "edit_forum",
	ReadPost:          "read_forum",
	DeletePost:        "delete_forum",
	ModeratePost:      "moderate_forum",
	ClosePost:         "close_forum",
	OpenPost:          "open_forum",
	CreatePosts:       CreateForums,
	EditPosts:         EditForums,
	EditOthersPosts:   EditOthersForums,
	ReadPrivatePosts:  ReadPrivateForums,
	ReadHiddenPosts:   ReadHiddenForums,
	Read:              ReadForums,
	DeletePosts:       DeleteForums,
	DeleteOthersPosts: DeleteOthersForums,
	ModeratePosts:     ModerateForums,
}

var TopicCaps = TypeCaps{
	EditPost:          "edit_topic",
	ReadPost:          "read_topic",
	DeletePost:        "delete_topic",
	ModeratePost:      "moderate_topic",
	ClosePost:         "close_topic",
	OpenPost:          "open_topic",
	SpamPost:          "spam_topic",
	CreatePosts:       CreateTopics,
	EditPosts:         EditTopics,
	EditOthersPosts:   EditOthersTopics,
	ReadPrivatePosts:  ReadPrivateTopics,
	ReadHiddenPosts:   ReadHiddenTopics,
	Read:              ReadTopics,
	DeletePosts:       DeleteTopics,
	DeleteOthersPosts: DeleteOthersTopics,
	ModeratePosts:     ModerateTopics,
}

var ReplyCaps = TypeCaps{
	EditPost:          "edit_reply",
	ReadPost:          "read_reply",
	DeletePost:        "delete_reply",
	ModeratePost:      "moderate_reply",
	SpamPost:          "spam_reply",
	CreatePosts:       CreateReplies,
	EditPosts:         EditReplies,
	EditOthersPosts:   EditOthersReplies,
	Read:              ReadReplies,
	DeletePosts:       DeleteReplies,
	DeleteOthersPosts: DeleteOthersReplies,
	ModeratePosts:     ModerateReplies,
}

// CapsFor returns the capability table of an item type.
func CapsFor(t models.ItemType) *TypeCaps {
	switch t {
	case models.TypeForum:
		return &ForumCaps
	case models.TypeTopic:
		return &TopicCaps
	case models.TypeReply:
		return &ReplyCaps
	}
	return nil
}

// Store is the read access the mapper needs.
type Store interface {
	GetItem(id int64) (*models.Item, error)
	GetMeta(itemID int64, key string) (string, bool, error)
	DefaultForumID() int64
}

// Checker resolves capabilities against a Store. It keeps no state
// between calls.
type Checker struct {
	store Store
}

func New(store Store) *Checker {
	return &Checker{store: store}
}

func userID(u *models.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}

func isAuthor(u *models.User, it *models.Item) bool {
	id := userID(u)
	return id > 0 && id == it.AuthorID
}

// item returns the first argument as an item, or nil.
func (c *Checker) item(args []int64) *models.Item {
	if len(args) == 0 || args[0] <= 0 {
		return nil
	}
	it, err := c.store.GetItem(args[0])
	if err != nil {
		return nil
	}
	return it
}

var deny = []string{DoNotAllow}

// MapMetaCap translates cap into the primitive capabilities a user must
// hold. An empty result means the action is allowed outright.
func (c *Checker) MapMetaCap(cap string, user *models.User, args ...int64) []string {
	switch cap {
	case ForumCaps.ReadPost, TopicCaps.ReadPost, ReplyCaps.ReadPost:
		return c.MapMetaCap(ReadPost, user, args...)
	case ForumCaps.EditPost, TopicCaps.EditPost, ReplyCaps.EditPost:
		return c.MapMetaCap(EditPost, user, args...)
	case ForumCaps.DeletePost, TopicCaps.DeletePost, ReplyCaps.DeletePost:
		return c.MapMetaCap(DeletePost, user, args...)
	case ForumCaps.ClosePost, ForumCaps.OpenPost:
		return c.MapMetaCap(ForumCaps.ModeratePost, user, args...)
	case TopicCaps.ClosePost, TopicCaps.OpenPost, TopicCaps.SpamPost:
		return c.MapMetaCap(TopicCaps.ModeratePost, user, args...)
	case ReplyCaps.SpamPost:
		return c.MapMetaCap(ReplyCaps.ModeratePost, user, args...)
	case ModeratePost:
		it := c.item(args)
		if it == nil {
			return deny
		}
		return c.MapMetaCap(CapsFor(it.Type).ModeratePost, user, args...)

	case ReadPost:
		return c.mapRead(user, c.item(args))

	case ForumCaps.ModeratePost:
		return []string{ModerateForums}

	case TopicCaps.ModeratePost:
		topic := c.item(args)
		if !topic.IsTopic() {
			return deny
		}
		if c.UserCan(user, ForumCaps.ModeratePost, topic.ParentID) {
			return []string{ModerateForums}
		}
		return []string{ModerateTopics}

	case ReplyCaps.ModeratePost:
		reply := c.item(args)
		if !reply.IsReply() {
			return deny
		}
		topic, err := c.store.GetItem(reply.ParentID)
		if err != nil || !topic.IsTopic() {
			return deny
		}
		if c.UserCan(user, ForumCaps.ModeratePost, topic.ParentID) {
			return []string{ModerateForums}
		}
		if c.UserCan(user, TopicCaps.ModeratePost, topic.ID) {
			return []string{ModerateTopics}
		}
		return []string{ModerateReplies}

	case EditPost:
		it := c.item(args)
		if it == nil {
			return deny
		}
		tc := CapsFor(it.Type)
		if isAuthor(user, it) {
			return []string{tc.EditPosts}
		}
		return []string{tc.EditOthersPosts}

	case DeletePost:
		it := c.item(args)
		if it == nil {
			return deny
		}
		if it.IsForum() && it.ID == c.store.DefaultForumID() {
			return deny
		}
		tc := CapsFor(it.Type)
		if isAuthor(user, it) {
			return []string{tc.DeletePosts}
		}
		return []string{tc.DeleteOthersPosts}

	case CreateTopics:
		if len(args) == 0 {
			return []string{CreateTopics}
		}
		forum := c.item(args)
		if !forum.IsForum() || !models.ForumStatusOpen(forum.Status) {
			return deny
		}
		if forumType, _, _ := c.store.GetMeta(forum.ID, models.MetaForumType); forumType == models.ForumTypeCategory {
			return deny
		}
		return []string{CreateTopics}

	case CreateReplies:
		if len(args) == 0 {
			return []string{CreateReplies}
		}
		topic := c.item(args)
		if !topic.IsTopic() || topic.Status != models.StatusOpen {
			return deny
		}
		forum, err := c.store.GetItem(topic.ParentID)
		if err == nil && forum.IsForum() && !models.ForumStatusOpen(forum.Status) {
			return deny
		}
		return []string{CreateReplies}
	}

	return []string{cap}
}

func (c *Checker) mapRead(user *models.User, it *models.Item) []string {
	if it == nil {
		return deny
	}
	if isAuthor(user, it) {
		return []string{Read}
	}

	switch it.Type {
	case models.TypeForum:
		switch it.Status {
		case models.StatusHidden:
			return []string{ReadHiddenForums}
		case models.StatusPrivate:
			return []string{ReadPrivateForums}
		case models.StatusTrash:
			return []string{ModerateForums}
		}
		return []string{}

	case models.TypeTopic:
		if !c.canReadParent(user, it) {
			return deny
		}
		switch it.Status {
		case models.StatusHidden:
			return []string{ReadHiddenTopics}
		case models.StatusPrivate:
			return []string{ReadPrivateTopics}
		case models.StatusSpam, models.StatusTrash:
			return []string{ModerateTopics}
		}
		return []string{}

	case models.TypeReply:
		if !c.canReadParent(user, it) {
			return deny
		}
		if it.Status == models.StatusSpam || it.Status == models.StatusTrash {
			return []string{ModerateReplies}
		}
		return []string{}
	}
	return deny
}

// canReadParent is false only when the item's parent exists and user
// cannot read it.
func (c *Checker) canReadParent(user *models.User, it *models.Item) bool {
	if it.ParentID <= 0 {
		return true
	}
	if _, err := c.store.GetItem(it.ParentID); err != nil {
		return true
	}
	return c.UserCan(user, ReadPost, it.ParentID)
}

// UserCan reports whether user holds cap. A nil user is a guest.
func (c *Checker) UserCan(user *models.User, cap string, args ...int64) bool {
	role := RoleGuest
	if user != nil {
		role = user.Role
	}
	r := GetRole(role)

	for _, mapped := range c.MapMetaCap(cap, user, args...) {
		if mapped == DoNotAllow {
			return false
		}
		if r.Has(ManageForums) {
			continue
		}
		if !r.Has(mapped) {
			return false
		}
	}
	return true
}
