package notify

import (
	"context"
	"errors"
	"testing"

	"inkpress/api/internal/store"
)

var (
	alice = store.User{ID: "usr_a", Name: "Alice"}
	bob   = store.User{ID: "usr_b", Name: "Bob"}
	carol = store.User{ID: "usr_c", Name: "Carol"}
)

func postBy(author store.User) store.Post {
	return store.Post{ID: "pst_1", Slug: "hello-world", AuthorID: author.ID, AuthorName: author.Name}
}

func commentOn(post store.Post, author store.User, parentID *string) store.Comment {
	return store.Comment{ID: "cmt_1", PostID: post.ID, AuthorID: author.ID, Body: "hi", ParentID: parentID}
}

func TestFanOutTopLevelComment(t *testing.T) {
	post := postBy(bob)
	got := FanOut(commentOn(post, alice, nil), post, alice, nil)
	if len(got) != 1 {
		t.Fatalf("got %d notifications, want 1", len(got))
	}
	n := got[0]
	if n.RecipientID != bob.ID || n.SenderID != alice.ID {
		t.Fatalf("recipient=%s sender=%s", n.RecipientID, n.SenderID)
	}
	if n.Type != store.NotificationComment {
		t.Fatalf("type = %s, want comment", n.Type)
	}
	if n.Message != "Alice commented on your post." {
		t.Fatalf("message = %q", n.Message)
	}
	if n.Slug != "hello-world" || n.PostID != post.ID || n.CommentID != "cmt_1" {
		t.Fatalf("reference fields wrong: %+v", n)
	}
}

func TestFanOutSelfCommentIsSilent(t *testing.T) {
	post := postBy(alice)
	got := FanOut(commentOn(post, alice, nil), post, alice, nil)
	if len(got) != 0 {
		t.Fatalf("got %d notifications, want 0", len(got))
	}
}

func TestFanOutReplyToThirdParty(t *testing.T) {
	// Alice replies to Carol's comment on Bob's post: Bob hears a reply
	// happened, Carol hears her comment was replied to.
	post := postBy(bob)
	parentID := "cmt_parent"
	got := FanOut(commentOn(post, alice, &parentID), post, alice, &carol)
	if len(got) != 2 {
		t.Fatalf("got %d notifications, want 2", len(got))
	}
	if got[0].RecipientID != bob.ID || got[0].Type != store.NotificationReply {
		t.Fatalf("post author notification wrong: %+v", got[0])
	}
	if got[0].Message != "Alice replied to a comment." {
		t.Fatalf("post author message = %q", got[0].Message)
	}
	if got[1].RecipientID != carol.ID || got[1].Type != store.NotificationReply {
		t.Fatalf("parent author notification wrong: %+v", got[1])
	}
	if got[1].Message != "Alice replied to your comment." {
		t.Fatalf("parent author message = %q", got[1].Message)
	}
}

func TestFanOutReplyToPostAuthorDeduplicates(t *testing.T) {
	// The parent comment belongs to the post author: one notification, not two.
	post := postBy(bob)
	parentID := "cmt_parent"
	got := FanOut(commentOn(post, alice, &parentID), post, alice, &bob)
	if len(got) != 1 {
		t.Fatalf("got %d notifications, want 1", len(got))
	}
	if got[0].RecipientID != bob.ID || got[0].Type != store.NotificationReply {
		t.Fatalf("notification wrong: %+v", got[0])
	}
}

func TestFanOutReplyToOwnCommentOnOthersPost(t *testing.T) {
	// Alice replies to her own comment on Bob's post: only Bob is told.
	post := postBy(bob)
	parentID := "cmt_parent"
	got := FanOut(commentOn(post, alice, &parentID), post, alice, &alice)
	if len(got) != 1 {
		t.Fatalf("got %d notifications, want 1", len(got))
	}
	if got[0].RecipientID != bob.ID {
		t.Fatalf("recipient = %s, want %s", got[0].RecipientID, bob.ID)
	}
}

func TestFanOutPostAuthorRepliesOnOwnPost(t *testing.T) {
	// Bob replies to Carol's comment on his own post: only Carol is told.
	post := postBy(bob)
	parentID := "cmt_parent"
	got := FanOut(commentOn(post, bob, &parentID), post, bob, &carol)
	if len(got) != 1 {
		t.Fatalf("got %d notifications, want 1", len(got))
	}
	if got[0].RecipientID != carol.ID || got[0].Message != "Bob replied to your comment." {
		t.Fatalf("notification wrong: %+v", got[0])
	}
}

func TestFanOutNeverTargetsActor(t *testing.T) {
	post := postBy(bob)
	parentID := "cmt_parent"
	cases := []struct {
		actor  store.User
		parent *store.User
	}{
		{alice, nil},
		{alice, &carol},
		{alice, &alice},
		{bob, &carol},
		{bob, &bob},
		{carol, &bob},
	}
	for _, tc := range cases {
		for _, n := range FanOut(commentOn(post, tc.actor, &parentID), post, tc.actor, tc.parent) {
			if n.RecipientID == tc.actor.ID {
				t.Fatalf("actor %s notified about own comment", tc.actor.ID)
			}
		}
	}
}

type recordingNotificationStore struct {
	inserted []store.Notification
	failFor  string
}

func (r *recordingNotificationStore) InsertNotification(_ context.Context, n store.Notification) error {
	if r.failFor != "" && n.RecipientID == r.failFor {
		return errors.New("boom")
	}
	r.inserted = append(r.inserted, n)
	return nil
}

func TestDeliverPersistsAll(t *testing.T) {
	rec := &recordingNotificationStore{}
	svc := NewService(rec)
	post := postBy(bob)
	parentID := "cmt_parent"
	delivered := svc.Deliver(context.Background(), commentOn(post, alice, &parentID), post, alice, &carol)
	if len(delivered) != 2 || len(rec.inserted) != 2 {
		t.Fatalf("delivered=%d stored=%d, want 2/2", len(delivered), len(rec.inserted))
	}
}

func TestDeliverSkipsFailedInsert(t *testing.T) {
	rec := &recordingNotificationStore{failFor: bob.ID}
	svc := NewService(rec)
	post := postBy(bob)
	parentID := "cmt_parent"
	delivered := svc.Deliver(context.Background(), commentOn(post, alice, &parentID), post, alice, &carol)
	if len(delivered) != 1 {
		t.Fatalf("delivered = %d, want 1", len(delivered))
	}
	if len(rec.inserted) != 1 || rec.inserted[0].RecipientID != carol.ID {
		t.Fatalf("unexpected stored set: %+v", rec.inserted)
	}
}
