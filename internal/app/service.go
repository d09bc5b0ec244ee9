package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"inkpress/api/internal/auth"
	"inkpress/api/internal/authpw"
	"inkpress/api/internal/config"
	"inkpress/api/internal/email"
	"inkpress/api/internal/export"
	"inkpress/api/internal/media"
	"inkpress/api/internal/notify"
	"inkpress/api/internal/rbac"
	"inkpress/api/internal/revision"
	"inkpress/api/internal/search"
	"inkpress/api/internal/store"
	"inkpress/api/internal/thread"
	"inkpress/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	Photo        string
	JTI          string
	ExpiresAt    time.Time
}

// notificationPageSize caps how many notifications one listing returns.
const notificationPageSize = 50

type dataStore interface {
	// Users
	CreateUser(ctx context.Context, user store.User) error
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)
	UpdateUserVerification(ctx context.Context, userID, code string, expiresAt time.Time) error
	VerifyUserEmail(ctx context.Context, code string) error
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	TouchLastLogin(ctx context.Context, userID string) error
	IncrementUserCommentCount(ctx context.Context, userID string) error
	AdjustUserPostCount(ctx context.Context, userID string, delta int) error
	CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error
	GetPasswordReset(ctx context.Context, token string) (string, error)
	MarkPasswordResetUsed(ctx context.Context, token string) error

	// Token revocation
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)

	// Posts
	InsertPost(ctx context.Context, post store.Post) error
	SlugExists(ctx context.Context, slug, authorID string) (bool, error)
	GetPostByID(ctx context.Context, postID string) (store.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (store.Post, error)
	ListPosts(ctx context.Context, limit int) ([]store.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID string, limit int) ([]store.Post, error)
	ListLikedPosts(ctx context.Context, userID string, limit int) ([]store.Post, error)
	UpdatePost(ctx context.Context, postID, title, slug, body, photoKey string) error
	DeletePost(ctx context.Context, postID string) error
	SetPostTags(ctx context.Context, postID string, tagIDs []string) error
	TogglePostLike(ctx context.Context, postID, userID string) (bool, error)

	// Tags
	ListTags(ctx context.Context) ([]store.Tag, error)
	GetTag(ctx context.Context, tagID string) (store.Tag, error)
	GetTagByName(ctx context.Context, name string) (store.Tag, error)
	InsertTag(ctx context.Context, tag store.Tag) error
	UpdateTag(ctx context.Context, tagID, name, description string, isActive bool) error
	DeleteTag(ctx context.Context, tagID string) error

	// Comments
	ListCommentsByPost(ctx context.Context, postID string) ([]store.Comment, error)
	GetComment(ctx context.Context, commentID string) (store.Comment, error)
	InsertComment(ctx context.Context, comment store.Comment) error

	// Notifications
	InsertNotification(ctx context.Context, n store.Notification) error
	ListNotificationsByRecipient(ctx context.Context, recipientID string, limit int) ([]store.Notification, error)
	MarkNotificationsRead(ctx context.Context, recipientID string) (int64, error)

	Ping(ctx context.Context) error
}

// sessionStore is where refresh tokens live: Redis when configured, the
// Postgres store otherwise.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type revisionService interface {
	EnsurePostRepo(postID string, initial revision.Content, author string) error
	CommitContent(postID string, content revision.Content, author, message string) (store.CommitInfo, error)
	GetContentByHash(postID, hash string) (revision.Content, error)
	History(postID string, limit int) ([]store.CommitInfo, error)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	revisions revisionService
	search    *search.Service
	authpw    *authpw.Service
	email     *email.Service
	exporter  *export.Service
	notifier  *notify.Service
	media     *media.Service
}

// New wires a service that keeps refresh sessions in Postgres.
func New(cfg config.Config, dataStore *store.PostgresStore, revisions *revision.Service, searchService *search.Service) *Service {
	return NewWithSessionStore(cfg, dataStore, dataStore, revisions, searchService)
}

// NewWithSessionStore wires a service with a dedicated refresh session
// backend (Redis in production).
func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions sessionStore, revisions *revision.Service, searchService *search.Service) *Service {
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		sessions:  sessions,
		revisions: revisions,
		search:    searchService,
		authpw:    authpw.NewService(dataStore),
		email: email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}),
		exporter: export.NewService(dataStore),
		notifier: notify.NewService(dataStore),
	}
}

// SetMedia attaches the object storage backend. Uploads return 503 until
// one is attached.
func (s *Service) SetMedia(m *media.Service) {
	s.media = m
}

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

func (s *Service) EmailService() *email.Service {
	return s.email
}

func (s *Service) MediaService() *media.Service {
	return s.media
}

func (s *Service) SMTPConfigured() bool {
	return s.email.IsConfigured()
}

// ResetURL builds the frontend deep link embedded in password reset emails.
func (s *Service) ResetURL(token string) string {
	return s.cfg.CORSOrigin + "/reset-password?token=" + token
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap runs startup work that needs the wiring complete: a database
// ping and a best-effort search reindex.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return err
	}
	s.search.ReindexAllFromPG(ctx)
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// ---------------------------------------------------------------------------
// Sessions

// CreateSession issues access and refresh tokens for a signed-in user.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	// Rotation: the presented token is single use.
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.Name,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Name,
		Role:         user.Role,
		Photo:        user.Photo,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.Name,
		Role:      user.Role,
		Photo:     user.Photo,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Posts

func (s *Service) ListPosts(ctx context.Context, limit int) ([]map[string]any, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	posts, err := s.store.ListPosts(ctx, limit)
	if err != nil {
		return nil, err
	}
	return postSummaries(posts), nil
}

func (s *Service) ListPostsByAuthor(ctx context.Context, authorID string, limit int) ([]map[string]any, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	posts, err := s.store.ListPostsByAuthor(ctx, authorID, limit)
	if err != nil {
		return nil, err
	}
	return postSummaries(posts), nil
}

func (s *Service) ListLikedPosts(ctx context.Context, userID string, limit int) ([]map[string]any, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	posts, err := s.store.ListLikedPosts(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return postSummaries(posts), nil
}

func (s *Service) GetPost(ctx context.Context, slug string) (map[string]any, error) {
	post, err := s.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	payload := postPayload(post)
	payload["body"] = post.Body
	return payload, nil
}

func (s *Service) CreatePost(ctx context.Context, session Session, title, body, photoKey string, tagNames []string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionPublish) {
		return nil, forbiddenError()
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("title is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, validationError("body is required")
	}

	slug := util.Slugify(title)
	exists, err := s.store.SlugExists(ctx, slug, session.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, conflictError("SLUG_EXISTS", "You already have a post with this title")
	}

	post := store.Post{
		ID:       util.NewID("pst"),
		Title:    title,
		Slug:     slug,
		Body:     body,
		PhotoKey: photoKey,
		AuthorID: session.UserID,
	}
	if err := s.store.InsertPost(ctx, post); err != nil {
		return nil, err
	}
	if err := s.store.AdjustUserPostCount(ctx, session.UserID, 1); err != nil {
		log.Printf("app: adjust post count for %s: %v", session.UserID, err)
	}

	tagIDs, tagList, err := s.resolveTags(ctx, tagNames)
	if err != nil {
		return nil, err
	}
	if len(tagIDs) > 0 {
		if err := s.store.SetPostTags(ctx, post.ID, tagIDs); err != nil {
			return nil, err
		}
	}

	if err := s.revisions.EnsurePostRepo(post.ID, revision.Content{
		Title:    post.Title,
		Slug:     post.Slug,
		Body:     post.Body,
		PhotoKey: post.PhotoKey,
	}, session.UserName); err != nil {
		log.Printf("app: init revision repo for %s: %v", post.ID, err)
	}

	s.indexPost(post, session.UserName, tagList)

	stored, err := s.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	payload := postPayload(stored)
	payload["body"] = stored.Body
	return payload, nil
}

func (s *Service) UpdatePost(ctx context.Context, session Session, slug, title, body, photoKey string, tagNames []string) (map[string]any, error) {
	post, err := s.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != session.UserID && !s.Can(session.Role, rbac.ActionManage) {
		return nil, forbiddenError()
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("title is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, validationError("body is required")
	}

	newSlug := util.Slugify(title)
	if newSlug != post.Slug {
		exists, err := s.store.SlugExists(ctx, newSlug, post.AuthorID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, conflictError("SLUG_EXISTS", "You already have a post with this title")
		}
	}

	if err := s.store.UpdatePost(ctx, post.ID, title, newSlug, body, photoKey); err != nil {
		return nil, err
	}

	if tagNames != nil {
		tagIDs, _, err := s.resolveTags(ctx, tagNames)
		if err != nil {
			return nil, err
		}
		if err := s.store.SetPostTags(ctx, post.ID, tagIDs); err != nil {
			return nil, err
		}
	}

	next := revision.Content{Title: title, Slug: newSlug, Body: body, PhotoKey: firstNonBlank(photoKey, post.PhotoKey)}
	prev := revision.Content{Title: post.Title, Slug: post.Slug, Body: post.Body, PhotoKey: post.PhotoKey}
	if revision.HasChanges(prev, next) {
		if _, err := s.revisions.CommitContent(post.ID, next, session.UserName, "Edit post"); err != nil {
			log.Printf("app: commit revision for %s: %v", post.ID, err)
		}
	}

	stored, err := s.store.GetPostBySlug(ctx, newSlug)
	if err != nil {
		return nil, err
	}
	s.indexPost(stored, stored.AuthorName, stored.Tags)
	payload := postPayload(stored)
	payload["body"] = stored.Body
	return payload, nil
}

func (s *Service) DeletePost(ctx context.Context, session Session, slug string) error {
	post, err := s.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if post.AuthorID != session.UserID && !s.Can(session.Role, rbac.ActionManage) {
		return forbiddenError()
	}
	if err := s.store.DeletePost(ctx, post.ID); err != nil {
		return err
	}
	if err := s.store.AdjustUserPostCount(ctx, post.AuthorID, -1); err != nil {
		log.Printf("app: adjust post count for %s: %v", post.AuthorID, err)
	}
	s.search.DeletePost(post.ID)
	return nil
}

func (s *Service) TogglePostLike(ctx context.Context, session Session, slug string) (map[string]any, error) {
	post, err := s.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	liked, err := s.store.TogglePostLike(ctx, post.ID, session.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"liked": liked}, nil
}

// PostHistory lists the git revisions of one post, newest first.
func (s *Service) PostHistory(ctx context.Context, slug string, limit int) ([]map[string]any, error) {
	post, err := s.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	commits, err := s.revisions.History(post.ID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(commits))
	for _, c := range commits {
		items = append(items, map[string]any{
			"hash":      c.Hash,
			"message":   strings.TrimSpace(c.Message),
			"author":    c.Author,
			"createdAt": c.CreatedAt,
		})
	}
	return items, nil
}

// PostRevision returns the content snapshot at one revision.
func (s *Service) PostRevision(ctx context.Context, slug, hash string) (map[string]any, error) {
	post, err := s.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	content, err := s.revisions.GetContentByHash(post.ID, hash)
	if err != nil {
		return nil, notFoundError("Revision not found")
	}
	return map[string]any{
		"hash":     hash,
		"title":    content.Title,
		"slug":     content.Slug,
		"body":     content.Body,
		"photoKey": content.PhotoKey,
	}, nil
}

// ExportPost renders a post (optionally with its comment threads) to PDF.
func (s *Service) ExportPost(ctx context.Context, slug string, includeComments bool) (*export.Result, error) {
	return s.exporter.Export(ctx, export.Request{Slug: slug, IncludeComments: includeComments})
}

func (s *Service) resolveTags(ctx context.Context, tagNames []string) ([]string, []store.Tag, error) {
	ids := make([]string, 0, len(tagNames))
	tags := make([]store.Tag, 0, len(tagNames))
	seen := make(map[string]struct{}, len(tagNames))
	for _, raw := range tagNames {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			continue
		}
		seen[strings.ToLower(name)] = struct{}{}

		tag, err := s.store.GetTagByName(ctx, name)
		if errors.Is(err, sql.ErrNoRows) {
			tag = store.Tag{ID: util.NewID("tag"), Name: name, IsActive: true}
			if err := s.store.InsertTag(ctx, tag); err != nil {
				return nil, nil, err
			}
		} else if err != nil {
			return nil, nil, err
		}
		ids = append(ids, tag.ID)
		tags = append(tags, tag)
	}
	return ids, tags, nil
}

func (s *Service) indexPost(post store.Post, authorName string, tags []store.Tag) {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	s.search.IndexPost(search.PostRecord{
		ID:         post.ID,
		Title:      post.Title,
		Slug:       post.Slug,
		Body:       post.Body,
		AuthorName: authorName,
		Tags:       names,
	})
}

// ---------------------------------------------------------------------------
// Tags

func (s *Service) ListTags(ctx context.Context) ([]map[string]any, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(tags))
	for _, t := range tags {
		items = append(items, tagPayload(t))
	}
	return items, nil
}

func (s *Service) GetTag(ctx context.Context, tagID string) (map[string]any, error) {
	tag, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return nil, err
	}
	return tagPayload(tag), nil
}

func (s *Service) CreateTag(ctx context.Context, session Session, name, description string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionManage) {
		return nil, forbiddenError()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("name is required")
	}
	if _, err := s.store.GetTagByName(ctx, name); err == nil {
		return nil, conflictError("TAG_EXISTS", "Tag already exists")
	}
	tag := store.Tag{ID: util.NewID("tag"), Name: name, Description: description, IsActive: true}
	if err := s.store.InsertTag(ctx, tag); err != nil {
		return nil, err
	}
	return tagPayload(tag), nil
}

func (s *Service) UpdateTag(ctx context.Context, session Session, tagID, name, description string, isActive bool) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionManage) {
		return nil, forbiddenError()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("name is required")
	}
	if err := s.store.UpdateTag(ctx, tagID, name, description, isActive); err != nil {
		return nil, err
	}
	tag, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return nil, err
	}
	return tagPayload(tag), nil
}

func (s *Service) DeleteTag(ctx context.Context, session Session, tagID string) error {
	if !s.Can(session.Role, rbac.ActionManage) {
		return forbiddenError()
	}
	return s.store.DeleteTag(ctx, tagID)
}

// ---------------------------------------------------------------------------
// Comments

// ListComments returns the threaded comment forest for one post.
func (s *Service) ListComments(ctx context.Context, slug string) ([]map[string]any, error) {
	post, err := s.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListCommentsByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return commentTreePayload(thread.Build(comments)), nil
}

func commentTreePayload(nodes []*thread.Node) []map[string]any {
	items := make([]map[string]any, 0, len(nodes))
	for _, node := range nodes {
		payload := commentPayload(node.Comment)
		payload["parentAuthorName"] = node.ParentAuthorName
		payload["depth"] = node.Depth
		payload["replies"] = commentTreePayload(node.Replies)
		items = append(items, payload)
	}
	return items
}

// CreateComment validates and persists one comment on a post addressed by
// slug, then fans out notifications. The comment write must succeed;
// notification delivery is best-effort after that.
func (s *Service) CreateComment(ctx context.Context, session Session, slug, body string, parentID *string) (map[string]any, error) {
	post, err := s.store.GetPostBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("Post not found")
		}
		return nil, err
	}
	return s.createComment(ctx, session, post, body, parentID)
}

// CreateCommentForPost is CreateComment addressed by post id.
func (s *Service) CreateCommentForPost(ctx context.Context, session Session, postID, body string, parentID *string) (map[string]any, error) {
	post, err := s.store.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("Post not found")
		}
		return nil, err
	}
	return s.createComment(ctx, session, post, body, parentID)
}

func (s *Service) createComment(ctx context.Context, session Session, post store.Post, body string, parentID *string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionComment) {
		return nil, forbiddenError()
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, validationError("comment body is required")
	}

	var parentAuthor *store.User
	if parentID != nil && *parentID != "" {
		parent, err := s.store.GetComment(ctx, *parentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFoundError("Parent comment not found")
			}
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, validationError("parent comment belongs to a different post")
		}
		author, err := s.store.GetUserByID(ctx, parent.AuthorID)
		if err == nil {
			parentAuthor = &author
		}
	} else {
		parentID = nil
	}

	comment := store.Comment{
		ID:       util.NewID("cmt"),
		PostID:   post.ID,
		AuthorID: session.UserID,
		Body:     body,
		ParentID: parentID,
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return nil, err
	}
	if err := s.store.IncrementUserCommentCount(ctx, session.UserID); err != nil {
		log.Printf("app: increment comment count for %s: %v", session.UserID, err)
	}

	actor := store.User{ID: session.UserID, Name: session.UserName}
	delivered := s.notifier.Deliver(ctx, comment, post, actor, parentAuthor)
	s.emailNotices(ctx, delivered)

	stored, err := s.store.GetComment(ctx, comment.ID)
	if err != nil {
		// The write succeeded; fall back to what we already know.
		stored = comment
		stored.AuthorName = session.UserName
		stored.AuthorPhoto = session.Photo
		stored.CreatedAt = time.Now()
	}
	return commentPayload(stored), nil
}

// emailNotices mirrors in-app notifications over SMTP when configured.
// Failures only get logged.
func (s *Service) emailNotices(ctx context.Context, notifications []store.Notification) {
	if !s.email.IsConfigured() {
		return
	}
	for _, n := range notifications {
		recipient, err := s.store.GetUserByID(ctx, n.RecipientID)
		if err != nil {
			log.Printf("app: load notification recipient %s: %v", n.RecipientID, err)
			continue
		}
		postURL := s.cfg.CORSOrigin + "/posts/" + n.Slug
		if err := s.email.SendReplyNotice(recipient.Email, recipient.Name, n.Message, postURL); err != nil {
			log.Printf("app: send notice email to %s: %v", recipient.Email, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Notifications

// Notifications lists the newest notifications for one recipient. Only the
// recipient (or an admin) may read them.
func (s *Service) Notifications(ctx context.Context, session Session, recipientID string) ([]map[string]any, error) {
	if recipientID != session.UserID && !s.Can(session.Role, rbac.ActionManage) {
		return nil, forbiddenError()
	}
	items, err := s.store.ListNotificationsByRecipient(ctx, recipientID, notificationPageSize)
	if err != nil {
		return nil, err
	}
	payload := make([]map[string]any, 0, len(items))
	for _, n := range items {
		payload = append(payload, map[string]any{
			"id":          n.ID,
			"type":        string(n.Type),
			"message":     n.Message,
			"slug":        n.Slug,
			"postId":      n.PostID,
			"commentId":   n.CommentID,
			"read":        n.Read,
			"senderName":  n.SenderName,
			"senderPhoto": n.SenderPhoto,
			"createdAt":   n.CreatedAt,
		})
	}
	return payload, nil
}

// MarkNotificationsRead flips everything unread for one recipient and
// reports how many rows changed. Safe to repeat.
func (s *Service) MarkNotificationsRead(ctx context.Context, session Session, recipientID string) (map[string]any, error) {
	if recipientID != session.UserID && !s.Can(session.Role, rbac.ActionManage) {
		return nil, forbiddenError()
	}
	modified, err := s.store.MarkNotificationsRead(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"modifiedCount": modified}, nil
}

// ---------------------------------------------------------------------------
// Search and users

func (s *Service) Search(ctx context.Context, q, tag string, limit, offset int) (search.Response, error) {
	return s.search.Search(search.Query{Text: q, FilterTag: tag, Limit: limit, Offset: offset}), nil
}

func (s *Service) ListUsers(ctx context.Context, session Session) ([]map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionManage) {
		return nil, forbiddenError()
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(users))
	for _, u := range users {
		items = append(items, map[string]any{
			"id":           u.ID,
			"name":         u.Name,
			"email":        u.Email,
			"photo":        u.Photo,
			"role":         u.Role,
			"isVerified":   u.IsVerified,
			"postCount":    u.PostCount,
			"commentCount": u.CommentCount,
			"lastLoginAt":  u.LastLoginAt,
			"createdAt":    u.CreatedAt,
		})
	}
	return items, nil
}

func (s *Service) GetProfile(ctx context.Context, userID string) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":           user.ID,
		"name":         user.Name,
		"photo":        user.Photo,
		"role":         user.Role,
		"postCount":    user.PostCount,
		"commentCount": user.CommentCount,
		"createdAt":    user.CreatedAt,
	}, nil
}

// ---------------------------------------------------------------------------
// Payload helpers

func postSummaries(posts []store.Post) []map[string]any {
	items := make([]map[string]any, 0, len(posts))
	for _, p := range posts {
		items = append(items, postPayload(p))
	}
	return items
}

func postPayload(p store.Post) map[string]any {
	tags := make([]map[string]any, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, tagPayload(t))
	}
	return map[string]any{
		"id":          p.ID,
		"title":       p.Title,
		"slug":        p.Slug,
		"photoKey":    p.PhotoKey,
		"authorId":    p.AuthorID,
		"authorName":  p.AuthorName,
		"authorPhoto": p.AuthorPhoto,
		"tags":        tags,
		"likeCount":   p.LikeCount,
		"createdAt":   p.CreatedAt,
		"updatedAt":   p.UpdatedAt,
	}
}

func tagPayload(t store.Tag) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"name":        t.Name,
		"description": t.Description,
		"isActive":    t.IsActive,
	}
}

func commentPayload(c store.Comment) map[string]any {
	return map[string]any{
		"id":          c.ID,
		"postId":      c.PostID,
		"authorId":    c.AuthorID,
		"authorName":  c.AuthorName,
		"authorPhoto": c.AuthorPhoto,
		"body":        c.Body,
		"parentId":    c.ParentID,
		"createdAt":   c.CreatedAt,
	}
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
