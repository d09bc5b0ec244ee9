// Package notify decides who gets told about a new comment and records
// the result. A single comment produces at most two notifications and
// never one addressed to the commenter themselves.
package notify

import (
	"fmt"

	"inkpress/api/internal/store"
	"inkpress/api/internal/util"
)

// FanOut computes the notification records for one new comment. post is the
// post the comment landed on, actor is the comment's author, and parent is
// the author of the parent comment when the new comment is a reply (nil for
// top-level comments).
//
// Two recipients are considered: the post author, and the parent comment's
// author. The post author is skipped when they are the actor; the parent
// author is skipped when they are the actor or already covered as the post
// author. Recipients are therefore distinct and the result holds zero, one
// or two records.
func FanOut(comment store.Comment, post store.Post, actor store.User, parent *store.User) []store.Notification {
	out := make([]store.Notification, 0, 2)

	if post.AuthorID != actor.ID {
		typ := store.NotificationComment
		message := fmt.Sprintf("%s commented on your post.", actor.Name)
		if parent != nil {
			typ = store.NotificationReply
			message = fmt.Sprintf("%s replied to a comment.", actor.Name)
		}
		out = append(out, record(post.AuthorID, actor.ID, typ, comment, post, message))
	}

	if parent != nil && parent.ID != actor.ID && parent.ID != post.AuthorID {
		message := fmt.Sprintf("%s replied to your comment.", actor.Name)
		out = append(out, record(parent.ID, actor.ID, store.NotificationReply, comment, post, message))
	}

	return out
}

func record(recipientID, senderID string, typ store.NotificationType, comment store.Comment, post store.Post, message string) store.Notification {
	return store.Notification{
		ID:          util.NewID("ntf"),
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        typ,
		PostID:      post.ID,
		CommentID:   comment.ID,
		Slug:        post.Slug,
		Message:     message,
	}
}
