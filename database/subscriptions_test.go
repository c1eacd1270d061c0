//go:build fts5

package database

import (
	"reflect"
	"testing"

	"msgboard/models"
)

func TestSubscriptions(t *testing.T) {
	ds := setupTestDB(t)
	alice := createTestUser(t, ds, "alice")
	bob := createTestUser(t, ds, "bob")
	topic, _ := ds.CreateTopic(alice.ID, models.NewTopicInput{Title: "Subscribed", Content: "x", ForumID: ds.DefaultForumID(), Subscribe: true})
	other, _ := ds.CreateTopic(alice.ID, models.NewTopicInput{Title: "Other", Content: "x", ForumID: ds.DefaultForumID()})

	subs, err := ds.GetTopicSubscribers(topic.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(subs, []int64{alice.ID}) {
		t.Errorf("Expected [alice], got %v", subs)
	}

	added, _ := ds.AddUserSubscription(bob.ID, topic.ID)
	if !added {
		t.Error("Expected first subscription to be added")
	}
	added, _ = ds.AddUserSubscription(bob.ID, topic.ID)
	if added {
		t.Error("Expected duplicate subscription to report false")
	}
	// The cached subscriber list must see bob.
	subs, _ = ds.GetTopicSubscribers(topic.ID)
	if !reflect.DeepEqual(subs, []int64{alice.ID, bob.ID}) {
		t.Errorf("Expected [alice bob], got %v", subs)
	}

	// Lists keep insertion order.
	ds.AddUserSubscription(bob.ID, other.ID)
	ids, _ := ds.GetUserSubscriptions(bob.ID)
	if !reflect.DeepEqual(ids, []int64{topic.ID, other.ID}) {
		t.Errorf("Unexpected subscription list %v", ids)
	}

	removed, _ := ds.RemoveUserSubscription(bob.ID, topic.ID)
	if !removed {
		t.Error("Expected removal to report true")
	}
	removed, _ = ds.RemoveUserSubscription(bob.ID, topic.ID)
	if removed {
		t.Error("Expected second removal to report false")
	}
	subs, _ = ds.GetTopicSubscribers(topic.ID)
	if !reflect.DeepEqual(subs, []int64{alice.ID}) {
		t.Errorf("Expected [alice] after removal, got %v", subs)
	}

	if subs, _ := ds.GetTopicSubscribers(0); subs != nil {
		t.Errorf("Expected nil for topic 0, got %v", subs)
	}
}

func TestBookmarks(t *testing.T) {
	ds := setupTestDB(t)
	u := createTestUser(t, ds, "reader")
	topic, _ := ds.CreateTopic(u.ID, models.NewTopicInput{Title: "Keep", Content: "x", ForumID: ds.DefaultForumID()})

	if marked, _ := ds.IsTopicUserBookmark(u.ID, topic.ID); marked {
		t.Error("Expected no bookmark yet")
	}
	// Prime the cache before the change.
	if bm, _ := ds.GetTopicBookmarkers(topic.ID); len(bm) != 0 {
		t.Errorf("Expected no bookmarkers, got %v", bm)
	}
	ds.AddUserBookmark(u.ID, topic.ID)
	if bm, _ := ds.GetTopicBookmarkers(topic.ID); !reflect.DeepEqual(bm, []int64{u.ID}) {
		t.Errorf("Expected bookmarker cache to refresh, got %v", bm)
	}
	ds.RemoveUserBookmark(u.ID, topic.ID)
	if marked, _ := ds.IsTopicUserBookmark(u.ID, topic.ID); marked {
		t.Error("Expected bookmark to be removed")
	}
}

func TestForumSubscriptions(t *testing.T) {
	ds := setupTestDB(t)
	u := createTestUser(t, ds, "watcher")
	forumID := ds.DefaultForumID()

	if ok, _ := ds.AddUserForumSubscription(u.ID, forumID); !ok {
		t.Error("Expected forum subscription to be added")
	}
	if ok, _ := ds.IsUserSubscribedForum(u.ID, forumID); !ok {
		t.Error("Expected user to be subscribed to the forum")
	}
	if ok, _ := ds.RemoveUserForumSubscription(u.ID, forumID); !ok {
		t.Error("Expected forum subscription to be removed")
	}
}
