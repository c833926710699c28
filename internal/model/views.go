package model

import (
	"sort"
	"strings"
)

// DefaultRecentCount is the size of the recent history list.
const DefaultRecentCount = 5

// TaggedChat is a chat annotated with the scope it was found in.
type TaggedChat struct {
	Chat
	Scope   Scope  `json:"scope"`
	Project string `json:"project,omitempty"`
}

// Ref returns the chat reference of the tagged chat.
func (t TaggedChat) Ref() ChatRef {
	return ChatRef{ID: t.ID, Scope: t.Scope, Project: t.Project}
}

// DisplayName is the label used in history and search lists.
func (t TaggedChat) DisplayName() string {
	name := t.Name
	if name == "" {
		name = UnnamedChatName
	}
	if t.Scope == ScopeProject {
		return "[" + t.Project + "] " + name
	}
	return name
}

// MergedChats lists standalone chats first, then every project's chats in
// collection order.
func MergedChats(chats []Chat, projects []Project) []TaggedChat {
	merged := make([]TaggedChat, 0, len(chats))
	for _, c := range chats {
		merged = append(merged, TaggedChat{Chat: c, Scope: ScopeStandalone})
	}
	for _, p := range projects {
		for _, c := range p.Chats {
			merged = append(merged, TaggedChat{Chat: c, Scope: ScopeProject, Project: p.Name})
		}
	}
	return merged
}

// MostRecent returns the chat with the greatest timestamp. Ties keep the
// earliest chat in list order.
func MostRecent(merged []TaggedChat) (TaggedChat, bool) {
	if len(merged) == 0 {
		return TaggedChat{}, false
	}
	best := 0
	for i := 1; i < len(merged); i++ {
		if merged[i].Timestamp > merged[best].Timestamp {
			best = i
		}
	}
	return merged[best], true
}

// Search filters chats whose name or any message contains term, ignoring case.
// An empty term returns the input unchanged.
func Search(merged []TaggedChat, term string) []TaggedChat {
	if term == "" {
		return merged
	}
	needle := strings.ToLower(term)
	var out []TaggedChat
	for _, c := range merged {
		if matches(c.Chat, needle) {
			out = append(out, c)
		}
	}
	return out
}

func matches(c Chat, needle string) bool {
	if strings.Contains(strings.ToLower(c.Name), needle) {
		return true
	}
	for _, m := range c.Messages {
		if strings.Contains(strings.ToLower(m.Content), needle) {
			return true
		}
	}
	return false
}

// RecentN returns up to n chats ordered by timestamp, newest first.
func RecentN(merged []TaggedChat, n int) []TaggedChat {
	if n <= 0 {
		n = DefaultRecentCount
	}
	sorted := append([]TaggedChat(nil), merged...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
