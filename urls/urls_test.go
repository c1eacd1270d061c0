package urls

import "testing"

func TestPaths(t *testing.T) {
	p := Paths{Root: "board", UseRoot: true}
	bare := Paths{Root: "board", UseRoot: false}

	testCases := []struct {
		name string
		got  string
		want string
	}{
		{"index", p.IndexURL(), "/board/"},
		{"forum", p.ForumURL("general", 1), "/board/forums/general/"},
		{"forum page", p.ForumURL("general", 3), "/board/forums/general/page/3/"},
		{"topic", p.TopicURL("hello-world"), "/board/topics/hello-world/"},
		{"topic page", p.TopicPageURL("hello-world", 2), "/board/topics/hello-world/page/2/"},
		{"reply", p.ReplyURL("hello-world", 2, 42), "/board/topics/hello-world/page/2/#post-42"},
		{"reply first page", p.ReplyURL("hello-world", 1, 7), "/board/topics/hello-world/#post-7"},
		{"reply permalink", p.ReplyPermalink(42), "/board/replies/42/"},
		{"feed", p.FeedURL("hello-world", "atom"), "/board/topics/hello-world/feed/atom/"},
		{"user", p.UserURL("alice"), "/board/users/alice/"},
		{"user page", p.UserPageURL("alice", "bookmarks", 2), "/board/users/alice/bookmarks/page/2/"},
		{"roles", p.RolesURL(), "/board/users/roles/"},
		{"role", p.RoleURL("moderator", 1), "/board/users/roles/moderator/"},
		{"login", p.LoginURL(), "/board/login/"},
		{"search", p.SearchURL("a b"), "/board/search/?s=a+b"},
		{"new topic form", p.FormURL(FormNewTopic), "/board/?message-board=new-topic"},
		{"action", p.ActionURL(ActionClose, 5, "/board/topics/x/"), "/board/?action=close&redirect=%2Fboard%2Ftopics%2Fx%2F&topic_id=5"},
		{"bare forum slug", bare.ForumSlug(), "forums"},
		{"bare search keeps root", bare.SearchSlug(), "board/search"},
		{"bare topic", bare.TopicURL("x"), "/topics/x/"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %q, want %q", tc.got, tc.want)
			}
		})
	}
}

func TestPaging(t *testing.T) {
	if ParsePage("") != 1 || ParsePage("0") != 1 || ParsePage("x") != 1 || ParsePage("4") != 4 {
		t.Error("ParsePage returned an unexpected value")
	}
	testCases := []struct{ pos, per, want int }{
		{1, 15, 1}, {15, 15, 1}, {16, 15, 2}, {0, 15, 1}, {31, 15, 3},
	}
	for _, tc := range testCases {
		if got := PageOf(tc.pos, tc.per); got != tc.want {
			t.Errorf("PageOf(%d, %d) = %d, want %d", tc.pos, tc.per, got, tc.want)
		}
	}
	if !IsUserPage("topic-subscriptions") || IsUserPage("settings") {
		t.Error("IsUserPage returned an unexpected value")
	}
}
