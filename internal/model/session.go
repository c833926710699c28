package model

// Scope tells which collection a chat lives in.
type Scope string

const (
	ScopeNone       Scope = "none"
	ScopeStandalone Scope = "standalone"
	ScopeProject    Scope = "project"
)

// ChatRef addresses a chat inside its scope. Chat ids are only unique per scope.
type ChatRef struct {
	ID      int64  `json:"id"`
	Scope   Scope  `json:"scope"`
	Project string `json:"project,omitempty"`
}

// RefFor builds the reference of a chat given an optional project name.
func RefFor(id int64, project string) ChatRef {
	if project != "" {
		return ChatRef{ID: id, Scope: ScopeProject, Project: project}
	}
	return ChatRef{ID: id, Scope: ScopeStandalone}
}

// SessionContext records which chat is displayed.
//
// ActiveScope == ScopeProject implies ActiveProjectName is set;
// ActiveScope == ScopeStandalone implies it is nil.
type SessionContext struct {
	ActiveChatID      *int64  `json:"activeChatId"`
	ActiveScope       Scope   `json:"activeScope"`
	ActiveProjectName *string `json:"activeProjectName"`
}

// EmptySession is the context with no active chat.
func EmptySession() SessionContext {
	return SessionContext{ActiveScope: ScopeNone}
}

// Activate returns the context pointing at ref.
func Activate(ref ChatRef) SessionContext {
	id := ref.ID
	ctx := SessionContext{ActiveChatID: &id, ActiveScope: ref.Scope}
	if ref.Scope == ScopeProject {
		name := ref.Project
		ctx.ActiveProjectName = &name
	}
	return ctx
}

// Ref returns the active chat reference, or false when nothing is active.
func (s SessionContext) Ref() (ChatRef, bool) {
	if s.ActiveChatID == nil || s.ActiveScope == ScopeNone {
		return ChatRef{}, false
	}
	ref := ChatRef{ID: *s.ActiveChatID, Scope: s.ActiveScope}
	if s.ActiveProjectName != nil {
		ref.Project = *s.ActiveProjectName
	}
	return ref, true
}

// IsActive reports whether ref is the active chat.
func (s SessionContext) IsActive(ref ChatRef) bool {
	active, ok := s.Ref()
	return ok && active == ref
}

// InProject reports whether the active chat belongs to the named project.
func (s SessionContext) InProject(name string) bool {
	return s.ActiveScope == ScopeProject && s.ActiveProjectName != nil && *s.ActiveProjectName == name
}
