package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---------------------------------------------------------------------------
// Users

const userColumns = `id, name, email, password_hash, photo, role, is_verified,
	verification_code, verification_expires_at, last_login_at, last_comment_at,
	post_count, comment_count, created_at, updated_at`

func (s *PostgresStore) scanUser(row interface{ Scan(...any) error }) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Photo,
		&user.Role,
		&user.IsVerified,
		&user.VerificationCode,
		&user.VerificationExpiresAt,
		&user.LastLoginAt,
		&user.LastCommentAt,
		&user.PostCount,
		&user.CommentCount,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, photo, role, is_verified, verification_code, verification_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.Photo, user.Role, user.IsVerified, user.VerificationCode, user.VerificationExpiresAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	return s.scanUser(row)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email)
	return s.scanUser(row)
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := s.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *PostgresStore) UpdateUserVerification(ctx context.Context, userID, code string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_code=$2, verification_expires_at=$3, updated_at=NOW() WHERE id=$1
	`, userID, code, expiresAt)
	if err != nil {
		return fmt.Errorf("update verification code: %w", err)
	}
	return nil
}

// VerifyUserEmail consumes an unexpired verification code. Returns
// sql.ErrNoRows when the code matches no user.
func (s *PostgresStore) VerifyUserEmail(ctx context.Context, code string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_verified=TRUE, verification_code='', verification_expires_at=NULL, updated_at=NOW()
		WHERE verification_code=$1 AND verification_code <> ''
			AND (verification_expires_at IS NULL OR verification_expires_at > NOW())
	`, code)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify email result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at=NOW() WHERE id=$1`, userID)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

// IncrementUserCommentCount bumps the denormalized comment counter and the
// last-comment timestamp, mirroring what happens on every comment create.
func (s *PostgresStore) IncrementUserCommentCount(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET comment_count = comment_count + 1, last_comment_at = NOW() WHERE id=$1
	`, userID)
	if err != nil {
		return fmt.Errorf("increment comment count: %w", err)
	}
	return nil
}

func (s *PostgresStore) AdjustUserPostCount(ctx context.Context, userID string, delta int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET post_count = GREATEST(post_count + $2, 0) WHERE id=$1
	`, userID, delta)
	if err != nil {
		return fmt.Errorf("adjust post count: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, used_at=NULL
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets
		WHERE token=$1 AND used_at IS NULL AND expires_at > NOW()
	`, token).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Refresh sessions and token revocation (Postgres fallback when Redis is off)

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash string, user User, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, user.ID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.name, u.email, u.role, u.photo
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.Photo)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// ---------------------------------------------------------------------------
// Posts

const postSelect = `
	SELECT p.id, p.title, p.slug, p.body, p.photo_key, p.author_id,
		u.name, u.photo,
		(SELECT COUNT(*) FROM post_likes pl WHERE pl.post_id = p.id),
		p.created_at, p.updated_at
	FROM posts p
	JOIN users u ON u.id = p.author_id
`

func scanPost(row interface{ Scan(...any) error }) (Post, error) {
	var post Post
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Slug,
		&post.Body,
		&post.PhotoKey,
		&post.AuthorID,
		&post.AuthorName,
		&post.AuthorPhoto,
		&post.LikeCount,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	return post, err
}

func (s *PostgresStore) InsertPost(ctx context.Context, post Post) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, title, slug, body, photo_key, author_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, post.ID, post.Title, post.Slug, post.Body, post.PhotoKey, post.AuthorID)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *PostgresStore) SlugExists(ctx context.Context, slug, authorID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM posts WHERE slug=$1 AND author_id=$2)
	`, slug, authorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) GetPostByID(ctx context.Context, postID string) (Post, error) {
	post, err := scanPost(s.db.QueryRowContext(ctx, postSelect+`WHERE p.id=$1`, postID))
	if err != nil {
		return Post{}, err
	}
	return s.attachTags(ctx, post)
}

func (s *PostgresStore) GetPostBySlug(ctx context.Context, slug string) (Post, error) {
	post, err := scanPost(s.db.QueryRowContext(ctx, postSelect+`WHERE p.slug=$1 ORDER BY p.created_at DESC LIMIT 1`, slug))
	if err != nil {
		return Post{}, err
	}
	return s.attachTags(ctx, post)
}

func (s *PostgresStore) ListPosts(ctx context.Context, limit int) ([]Post, error) {
	return s.listPosts(ctx, postSelect+`ORDER BY p.created_at DESC LIMIT $1`, limit)
}

func (s *PostgresStore) ListPostsByAuthor(ctx context.Context, authorID string, limit int) ([]Post, error) {
	return s.listPosts(ctx, postSelect+`WHERE p.author_id=$1 ORDER BY p.created_at DESC LIMIT $2`, authorID, limit)
}

func (s *PostgresStore) ListLikedPosts(ctx context.Context, userID string, limit int) ([]Post, error) {
	query := postSelect + `
		JOIN post_likes liked ON liked.post_id = p.id AND liked.user_id = $1
		ORDER BY liked.created_at DESC LIMIT $2`
	return s.listPosts(ctx, query, userID, limit)
}

func (s *PostgresStore) listPosts(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	for i := range posts {
		posts[i], err = s.attachTags(ctx, posts[i])
		if err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (s *PostgresStore) attachTags(ctx context.Context, post Post) (Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.description, t.is_active, t.created_at, t.updated_at
		FROM tags t
		JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id = $1
		ORDER BY t.name
	`, post.ID)
	if err != nil {
		return Post{}, fmt.Errorf("load post tags: %w", err)
	}
	defer rows.Close()

	post.Tags = make([]Tag, 0)
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Description, &tag.IsActive, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
			return Post{}, fmt.Errorf("scan post tag: %w", err)
		}
		post.Tags = append(post.Tags, tag)
	}
	return post, rows.Err()
}

func (s *PostgresStore) UpdatePost(ctx context.Context, postID, title, slug, body, photoKey string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts
		SET title=$2, slug=$3, body=$4,
			photo_key = CASE WHEN $5 <> '' THEN $5 ELSE photo_key END,
			updated_at=NOW()
		WHERE id=$1
	`, postID, title, slug, body, photoKey)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update post result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeletePost(ctx context.Context, postID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id=$1`, postID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) SetPostTags(ctx context.Context, postID string, tagIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id=$1`, postID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear post tags: %w", err)
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING
		`, postID, tagID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert post tag: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set tags: %w", err)
	}
	return nil
}

// TogglePostLike likes the post when no like exists, unlikes it otherwise,
// and reports the resulting state.
func (s *PostgresStore) TogglePostLike(ctx context.Context, postID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING
	`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("like post: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("like post result: %w", err)
	}
	if inserted > 0 {
		return true, nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id=$1 AND user_id=$2`, postID, userID); err != nil {
		return false, fmt.Errorf("unlike post: %w", err)
	}
	return false, nil
}

// ---------------------------------------------------------------------------
// Tags

func (s *PostgresStore) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, is_active, created_at, updated_at FROM tags ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]Tag, 0)
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Description, &tag.IsActive, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *PostgresStore) GetTag(ctx context.Context, tagID string) (Tag, error) {
	var tag Tag
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, is_active, created_at, updated_at FROM tags WHERE id=$1
	`, tagID).Scan(&tag.ID, &tag.Name, &tag.Description, &tag.IsActive, &tag.CreatedAt, &tag.UpdatedAt)
	if err != nil {
		return Tag{}, err
	}
	return tag, nil
}

func (s *PostgresStore) GetTagByName(ctx context.Context, name string) (Tag, error) {
	var tag Tag
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, is_active, created_at, updated_at FROM tags WHERE LOWER(name)=LOWER($1)
	`, name).Scan(&tag.ID, &tag.Name, &tag.Description, &tag.IsActive, &tag.CreatedAt, &tag.UpdatedAt)
	if err != nil {
		return Tag{}, err
	}
	return tag, nil
}

func (s *PostgresStore) InsertTag(ctx context.Context, tag Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, description, is_active) VALUES ($1, $2, $3, $4)
	`, tag.ID, tag.Name, tag.Description, tag.IsActive)
	if err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTag(ctx context.Context, tagID, name, description string, isActive bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tags SET name=$2, description=$3, is_active=$4, updated_at=NOW() WHERE id=$1
	`, tagID, name, description, isActive)
	if err != nil {
		return fmt.Errorf("update tag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tag result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteTag(ctx context.Context, tagID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id=$1`, tagID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete tag result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ---------------------------------------------------------------------------
// Comments

// ListCommentsByPost returns the flat comment batch for one post in creation
// order, authors resolved, ready for thread building.
func (s *PostgresStore) ListCommentsByPost(ctx context.Context, postID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.post_id, c.author_id, c.body, c.parent_id, u.name, u.photo, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1
		ORDER BY c.created_at ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]Comment, 0)
	for rows.Next() {
		var comment Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.PostID,
			&comment.AuthorID,
			&comment.Body,
			&comment.ParentID,
			&comment.AuthorName,
			&comment.AuthorPhoto,
			&comment.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (Comment, error) {
	var comment Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.post_id, c.author_id, c.body, c.parent_id, u.name, u.photo, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = $1
	`, commentID).Scan(
		&comment.ID,
		&comment.PostID,
		&comment.AuthorID,
		&comment.Body,
		&comment.ParentID,
		&comment.AuthorName,
		&comment.AuthorPhoto,
		&comment.CreatedAt,
	)
	if err != nil {
		return Comment{}, err
	}
	return comment, nil
}

func (s *PostgresStore) InsertComment(ctx context.Context, comment Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, author_id, body, parent_id)
		VALUES ($1, $2, $3, $4, $5)
	`, comment.ID, comment.PostID, comment.AuthorID, comment.Body, comment.ParentID)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Notifications

func (s *PostgresStore) InsertNotification(ctx context.Context, n Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, sender_id, type, post_id, comment_id, slug, message, read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, n.ID, n.RecipientID, n.SenderID, string(n.Type), n.PostID, n.CommentID, n.Slug, n.Message, n.Read)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotificationsByRecipient returns the newest notifications first. The
// slug column wins; when it is empty the live post slug is used, and an
// empty string survives a deleted post.
func (s *PostgresStore) ListNotificationsByRecipient(ctx context.Context, recipientID string, limit int) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.recipient_id, n.sender_id, n.type, n.post_id, n.comment_id,
			COALESCE(NULLIF(n.slug, ''), p.slug, ''),
			n.message, n.read, u.name, u.photo, n.created_at
		FROM notifications n
		JOIN users u ON u.id = n.sender_id
		LEFT JOIN posts p ON p.id = n.post_id
		WHERE n.recipient_id = $1
		ORDER BY n.created_at DESC
		LIMIT $2
	`, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		var typ string
		if err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.SenderID,
			&typ,
			&n.PostID,
			&n.CommentID,
			&n.Slug,
			&n.Message,
			&n.Read,
			&n.SenderName,
			&n.SenderPhoto,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = NotificationType(typ)
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return items, nil
}

// MarkNotificationsRead flips every unread notification for one recipient in
// a single predicate update and reports how many rows changed. Calling it
// again immediately is a no-op returning zero.
func (s *PostgresStore) MarkNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read=TRUE WHERE recipient_id=$1 AND read=FALSE
	`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notifications read result: %w", err)
	}
	return affected, nil
}
