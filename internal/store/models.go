package store

import "time"

type User struct {
	ID                    string
	Name                  string
	Email                 string
	PasswordHash          string
	Photo                 string
	Role                  string
	IsVerified            bool
	VerificationCode      string
	VerificationExpiresAt *time.Time
	LastLoginAt           *time.Time
	LastCommentAt         *time.Time
	PostCount             int
	CommentCount          int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Post struct {
	ID       string
	Title    string
	Slug     string
	Body     string
	PhotoKey string
	AuthorID string
	// Joined for display
	AuthorName  string
	AuthorPhoto string
	Tags        []Tag
	LikeCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Tag struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment rows are flat; threading is derived at read time. ParentID is nil
// for top-level comments and must reference a comment on the same post.
type Comment struct {
	ID       string
	PostID   string
	AuthorID string
	Body     string
	ParentID *string
	// Joined for display
	AuthorName  string
	AuthorPhoto string
	CreatedAt   time.Time
}

type NotificationType string

const (
	NotificationComment NotificationType = "comment"
	NotificationReply   NotificationType = "reply"
)

// Notification carries a denormalized post slug captured at creation time so
// deep links survive later renames of the post.
type Notification struct {
	ID          string
	RecipientID string
	SenderID    string
	Type        NotificationType
	PostID      string
	CommentID   string
	Slug        string
	Message     string
	Read        bool
	// Joined for display
	SenderName  string
	SenderPhoto string
	CreatedAt   time.Time
}

type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}
