package rbac

import (
	"slices"
	"strings"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/fields"
)

type Role string
type Action string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
	RoleStaff  Role = "staff"
)

const (
	ActionRead        Action = "read"
	ActionComment     Action = "comment"
	ActionApprove     Action = "approve"
	ActionManageUsers Action = "manage_users"
)

// AllClients is the selector value meaning "no client filter".
const AllClients = "all"

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleClient:
		return action == ActionRead || action == ActionApprove
	case RoleStaff:
		return action == ActionRead || action == ActionApprove || action == ActionComment
	default:
		return false
	}
}

// Normalize folds free-text role names from the Users table. Anything that
// is neither admin nor client is staff.
func Normalize(role string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(role))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleClient:
		return RoleClient
	default:
		return RoleStaff
	}
}

type User struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Role    Role     `json:"role"`
	Clients []string `json:"clients"`
}

// Scoped is anything the partition rule can be applied to.
type Scoped interface {
	ClientIDs() []string
	OwnerIDs() []string
}

type matcher func(Scoped) bool

// rule resolves the (role, selected) pair to a predicate. A nil predicate
// means pass everything through.
func rule(user User, selected string) matcher {
	selected = strings.TrimSpace(selected)
	if selected == AllClients {
		selected = ""
	}
	if selected != "" {
		return func(item Scoped) bool { return slices.Contains(item.ClientIDs(), selected) }
	}

	switch user.Role {
	case RoleAdmin:
		return nil
	case RoleClient:
		if len(user.Clients) == 0 {
			return func(Scoped) bool { return false }
		}
		first := user.Clients[0]
		return func(item Scoped) bool { return slices.Contains(item.ClientIDs(), first) }
	default:
		return func(item Scoped) bool {
			return user.ID != "" && slices.Contains(item.OwnerIDs(), user.ID)
		}
	}
}

// FilterByClient keeps the items user may see for the selected client. The
// result is a subset of items in input order and never nil.
func FilterByClient[T Scoped](user User, selected string, items []T) []T {
	match := rule(user, selected)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if match == nil || match(item) {
			out = append(out, item)
		}
	}
	return out
}

// BagScope adapts a raw field bag to Scoped.
type BagScope fields.Bag

func (b BagScope) ClientIDs() []string {
	return fields.Strings(fields.Bag(b), fields.ClientCandidates)
}

func (b BagScope) OwnerIDs() []string {
	return fields.OwnerIDs(fields.Bag(b))
}

// DefaultClient is the client id a list request is scoped to when none was
// selected: the first assigned client for client users, none otherwise.
func DefaultClient(user User, selected string) string {
	selected = strings.TrimSpace(selected)
	if selected == AllClients {
		selected = ""
	}
	if selected != "" {
		return selected
	}
	if user.Role == RoleClient && len(user.Clients) > 0 {
		return user.Clients[0]
	}
	return ""
}
