package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxNameLength = 256

// Project groups chats under a unique, case-sensitive name.
type Project struct {
	Name  string `json:"name"`
	Desc  string `json:"desc"`
	Chats []Chat `json:"chats"`
}

// CreateProjectRequest is the request to create a project.
type CreateProjectRequest struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
}

// Normalize trims surrounding whitespace from the request fields.
func (r *CreateProjectRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Desc = strings.TrimSpace(r.Desc)
}

// ProjectIndex returns the position of the project named name, or -1.
func ProjectIndex(projects []Project, name string) int {
	for i := range projects {
		if projects[i].Name == name {
			return i
		}
	}
	return -1
}

// ValidateProjectName rejects empty, oversized or duplicate names.
func ValidateProjectName(projects []Project, name string) error {
	if err := validateName("project", name); err != nil {
		return err
	}
	if ProjectIndex(projects, name) >= 0 {
		return fmt.Errorf("%w: project name already exists. Please choose a different name", ErrValidation)
	}
	return nil
}

// ValidateChatName rejects empty or oversized chat names.
func ValidateChatName(name string) error {
	return validateName("chat", name)
}

func validateName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: please enter a %s name", ErrValidation, kind)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: %s name exceeds maximum length", ErrValidation, kind)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: %s name must be valid UTF-8", ErrValidation, kind)
	}
	return nil
}

// ChatsNewestFirst returns the project's chats in reverse creation order.
func (p *Project) ChatsNewestFirst() []Chat {
	out := make([]Chat, 0, len(p.Chats))
	for i := len(p.Chats) - 1; i >= 0; i-- {
		out = append(out, p.Chats[i])
	}
	return out
}
