package card

import (
	"fmt"
	"strings"

	"github.com/xuanhao97/intergrate-gitlab-lark/internal/event"
)

const (
	titlePrefix  = "GitLab Notification"
	defaultColor = ColorBlue

	// Push cards list at most this many commits.
	maxCommits = 3
	// Commit messages longer than this are cut and marked with an ellipsis.
	maxCommitMessage = 100
)

// Generate maps a GitLab event to a Lark card. Returns nil when the event
// type has no card mapping; callers must treat nil as "unsupported event"
// and reject the request.
func Generate(ev *event.Payload, eventType string) *Message {
	switch eventType {
	case event.TypePush:
		return pushMessage(ev)
	case event.TypeMergeRequest:
		return mergeRequestMessage(ev)
	case event.TypeTagPush:
		return tagPushMessage(ev)
	default:
		return nil
	}
}

func pushMessage(ev *event.Payload) *Message {
	branch := ev.SourceBranch()
	if branch == "" {
		branch = "main"
	}

	elements := []Element{
		markdown(fmt.Sprintf("**Repository:** %s\n**Branch:** %s\n**Commits:** %d",
			ev.Project.Name, branch, len(ev.Commits))),
		markdown(fmt.Sprintf("**Author:** %s", mentions(ev.User.Username))),
	}

	for i, commit := range ev.Commits {
		if i >= maxCommits {
			break
		}
		elements = append(elements, markdown("• "+truncate(commit.Message, maxCommitMessage)))
	}

	elements = append(elements, primaryButton("View Repository", ev.Project.WebURL))

	if len(ev.Reviewers) > 0 {
		elements = append(elements, markdown(fmt.Sprintf("**Reviewers:** %s", mentions(usernames(ev.Reviewers)...))))
	}

	return newMessage(defaultColor, titlePrefix+": Push Event", elements)
}

func mergeRequestMessage(ev *event.Payload) *Message {
	mr := ev.ObjectAttributes
	if mr == nil {
		return nil
	}

	action := mr.Action
	if action == "" {
		action = "opened"
	}

	elements := []Element{
		markdown(fmt.Sprintf("**Title:** %s", mr.Title)),
		markdown(fmt.Sprintf("**Repository:** [%s](%s)", ev.Project.Name, ev.Project.WebURL)),
		markdown(fmt.Sprintf("**Author:** %s", mentions(ev.User.Username))),
	}

	// A present-but-empty reviewers list still gets a line; an absent field
	// does not.
	if ev.Reviewers != nil {
		elements = append(elements, markdown(fmt.Sprintf("**Reviewers:** %s", mentions(usernames(ev.Reviewers)...))))
	}

	elements = append(elements,
		markdown(fmt.Sprintf("**Source:** %s", mr.SourceBranch)),
		markdown(fmt.Sprintf("**Target:** %s", mr.TargetBranch)),
		primaryButton("View Merge Request", mr.URL),
	)

	title := fmt.Sprintf("%s [%s] Merge Request %s", actionEmoji(action), ev.Project.Name, capitalize(mr.State))
	return newMessage(defaultColor, title, elements)
}

func tagPushMessage(ev *event.Payload) *Message {
	elements := []Element{
		markdown(fmt.Sprintf("**Repository:** %s\n**Tag:** %s\n**Author:** %s",
			ev.Project.Name, ev.Ref, mentions(ev.UserName))),
		primaryButton("View Repository", ev.Project.WebURL),
	}
	return newMessage(defaultColor, titlePrefix+": Tag Push", elements)
}

// mentions renders usernames as comma-joined Lark at-mention tokens, keyed by
// the username itself.
func mentions(names ...string) string {
	tokens := make([]string, len(names))
	for i, name := range names {
		tokens[i] = fmt.Sprintf("<at id=%q>%s</at> ", name, name)
	}
	return strings.Join(tokens, ", ")
}

func usernames(users []event.User) []string {
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	return names
}

// truncate cuts s to max runes, appending "..." only when something was cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func actionEmoji(action string) string {
	switch action {
	case "opened":
		return "🆕"
	case "closed":
		return "🔒"
	case "reopened":
		return "🔄"
	case "updated":
		return "✏️"
	case "approved":
		return "✅"
	case "unapproved":
		return "❌"
	case "merged":
		return "🔀"
	case "commented":
		return "💬"
	default:
		return "📝"
	}
}
