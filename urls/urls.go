// Package urls builds the public paths of the board.
package urls

import (
	"net/url"
	"strconv"
	"strings"

	"msgboard/config"
)

// Actions accepted on the board index via ?action=.
const (
	ActionTrash       = "trash"
	ActionUntrash     = "untrash"
	ActionClose       = "close"
	ActionOpen        = "open"
	ActionSpam        = "spam"
	ActionUnspam      = "unspam"
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionBookmark    = "bookmark"
	ActionUnbookmark  = "unbookmark"
)

// Forms accepted on the board index via ?message-board=.
const (
	FormNewTopic = "new-topic"
	FormNewReply = "new-reply"
)

// User profile sub-pages.
var UserPages = []string{"forums", "topics", "replies", "bookmarks", "topic-subscriptions", "forum-subscriptions"}

// IsUserPage reports whether page is a known profile sub-page.
func IsUserPage(page string) bool {
	for _, p := range UserPages {
		if p == page {
			return true
		}
	}
	return false
}

// Paths computes slugs relative to a root slug.
type Paths struct {
	Root    string
	UseRoot bool
}

// Default uses the configured root slug.
var Default = Paths{Root: config.RootSlug, UseRoot: config.UseRootSlug}

// maybeRoot returns "board/" or "" depending on UseRoot.
func (p Paths) maybeRoot() string {
	if p.UseRoot && p.Root != "" {
		return strings.Trim(p.Root, "/") + "/"
	}
	return ""
}

func (p Paths) ForumSlug() string  { return p.maybeRoot() + "forums" }
func (p Paths) TopicSlug() string  { return p.maybeRoot() + "topics" }
func (p Paths) ReplySlug() string  { return p.maybeRoot() + "replies" }
func (p Paths) UserSlug() string   { return p.maybeRoot() + "users" }
func (p Paths) LoginSlug() string  { return p.maybeRoot() + "login" }
func (p Paths) SearchSlug() string { return strings.Trim(p.Root, "/") + "/search" }

func abs(parts ...string) string {
	return "/" + strings.Join(parts, "/") + "/"
}

func withPage(base string, page int) string {
	if page <= 1 {
		return base
	}
	return base + "page/" + strconv.Itoa(page) + "/"
}

// IndexURL is the board front page.
func (p Paths) IndexURL() string {
	if p.Root == "" {
		return "/"
	}
	return abs(strings.Trim(p.Root, "/"))
}

func (p Paths) ForumsURL(page int) string { return withPage(abs(p.ForumSlug()), page) }

func (p Paths) ForumURL(slug string, page int) string {
	return withPage(abs(p.ForumSlug(), url.PathEscape(slug)), page)
}

func (p Paths) TopicsURL(page int) string { return withPage(abs(p.TopicSlug()), page) }

func (p Paths) TopicURL(slug string) string {
	return abs(p.TopicSlug(), url.PathEscape(slug))
}

func (p Paths) TopicPageURL(slug string, page int) string {
	return withPage(p.TopicURL(slug), page)
}

// ReplyURL links to a reply's anchor on the topic page that holds it.
func (p Paths) ReplyURL(topicSlug string, page int, replyID int64) string {
	return p.TopicPageURL(topicSlug, page) + "#post-" + strconv.FormatInt(replyID, 10)
}

// ReplyPermalink resolves to ReplyURL via a redirect.
func (p Paths) ReplyPermalink(replyID int64) string {
	return abs(p.ReplySlug(), strconv.FormatInt(replyID, 10))
}

func (p Paths) FeedURL(topicSlug, kind string) string {
	return p.TopicURL(topicSlug) + "feed/" + kind + "/"
}

func (p Paths) UsersURL(page int) string { return withPage(abs(p.UserSlug()), page) }

func (p Paths) UserURL(nicename string) string {
	return abs(p.UserSlug(), url.PathEscape(nicename))
}

// UserPageURL links to a profile sub-page such as "topics" or "bookmarks".
func (p Paths) UserPageURL(nicename, userPage string, page int) string {
	return withPage(abs(p.UserSlug(), url.PathEscape(nicename), userPage), page)
}

func (p Paths) RolesURL() string { return abs(p.UserSlug(), "roles") }

func (p Paths) RoleURL(role string, page int) string {
	return withPage(abs(p.UserSlug(), "roles", url.PathEscape(role)), page)
}

func (p Paths) LoginURL() string { return abs(p.LoginSlug()) }

func (p Paths) SearchURL(query string) string {
	u := abs(p.SearchSlug())
	if query == "" {
		return u
	}
	return u + "?" + url.Values{"s": {query}}.Encode()
}

// ActionURL builds an index link that performs action on an item and
// then returns to redirect.
func (p Paths) ActionURL(action string, itemID int64, redirect string) string {
	v := url.Values{}
	v.Set("action", action)
	// Replies share the topic_id key; the handler resolves the item type.
	v.Set("topic_id", strconv.FormatInt(itemID, 10))
	if redirect != "" {
		v.Set("redirect", redirect)
	}
	return p.IndexURL() + "?" + v.Encode()
}

// FormURL is the endpoint a new-topic or new-reply form posts to.
func (p Paths) FormURL(form string) string {
	return p.IndexURL() + "?" + url.Values{"message-board": {form}}.Encode()
}

// ParsePage reads a "page/N" path value, defaulting to 1.
func ParsePage(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// PageOf returns the 1-based page holding the item at 1-based position pos.
func PageOf(pos, perPage int) int {
	if pos < 1 || perPage < 1 {
		return 1
	}
	return (pos-1)/perPage + 1
}
