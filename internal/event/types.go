// Package event defines the GitLab webhook payloads the bridge understands.
//
// GitLab sends one JSON envelope for every hook kind and tags the kind in the
// X-Gitlab-Event header. Fields that only some kinds carry are pointers or
// slices so that "absent" stays distinguishable from "empty".
package event

// Event type tags as delivered in the X-Gitlab-Event header.
const (
	TypePush         = "Push Hook"
	TypeMergeRequest = "Merge Request Hook"
	TypeTagPush      = "Tag Push Hook"
)

// User describes the actor of an event, or a reviewer.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// Project describes the repository the event belongs to.
type Project struct {
	Name      string `json:"name"`
	WebURL    string `json:"web_url"`
	Namespace string `json:"namespace"`
}

// CommitAuthor is the author record nested inside a commit.
type CommitAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Commit is a single commit in a push event.
type Commit struct {
	ID      string       `json:"id"`
	Message string       `json:"message"`
	URL     string       `json:"url"`
	Author  CommitAuthor `json:"author"`
}

// ObjectAttributes carries the merge-request (or issue/pipeline) specifics.
// Absent on plain push events.
type ObjectAttributes struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	URL          string `json:"url"`
	State        string `json:"state"`
	Action       string `json:"action"`
	IID          int64  `json:"iid"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
}

// Change is a previous/current pair for a mutated attribute.
type Change struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// Changes lists the attribute deltas a merge-request update carries.
type Changes struct {
	Title *Change `json:"title,omitempty"`
	State *Change `json:"state,omitempty"`
}

// Payload is the common GitLab webhook envelope.
//
// Reviewers stays nil when the field was absent from the JSON body and is an
// empty non-nil slice when GitLab sent "reviewers": []. The merge-request
// template renders a reviewers line in the second case but not the first.
type Payload struct {
	ObjectKind string `json:"object_kind"`
	EventName  string `json:"event_name"`
	Ref        string `json:"ref"`

	// Flat tag-push fields.
	Before      string `json:"before"`
	After       string `json:"after"`
	CheckoutSHA string `json:"checkout_sha"`
	UserID      int64  `json:"user_id"`
	UserName    string `json:"user_name"`
	UserAvatar  string `json:"user_avatar"`

	Project          Project           `json:"project"`
	User             User              `json:"user"`
	Commits          []Commit          `json:"commits,omitempty"`
	ObjectAttributes *ObjectAttributes `json:"object_attributes,omitempty"`
	Changes          *Changes          `json:"changes,omitempty"`
	Reviewers        []User            `json:"reviewers,omitempty"`
}

// SourceBranch returns the object_attributes source branch, or "" when the
// event carries none.
func (p *Payload) SourceBranch() string {
	if p.ObjectAttributes == nil {
		return ""
	}
	return p.ObjectAttributes.SourceBranch
}

// OnProtectedBranch reports whether the event's source branch is in the
// given deny-list.
func (p *Payload) OnProtectedBranch(protected []string) bool {
	branch := p.SourceBranch()
	if branch == "" {
		return false
	}
	for _, b := range protected {
		if branch == b {
			return true
		}
	}
	return false
}
