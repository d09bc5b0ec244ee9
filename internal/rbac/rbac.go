package rbac

type Role string
type Action string

const (
	RoleReader Role = "reader"
	RoleAuthor Role = "author"
	RoleAdmin  Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionComment Action = "comment"
	ActionPublish Action = "publish"
	ActionManage  Action = "manage"
)

// Can reports whether a role may perform an action. Readers comment, authors
// publish posts, admins additionally manage tags and other users' posts.
func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleAuthor:
		return action == ActionRead || action == ActionComment || action == ActionPublish
	case RoleReader:
		return action == ActionRead || action == ActionComment
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleReader, RoleAuthor, RoleAdmin:
		return Role(role)
	default:
		return RoleReader
	}
}
