// Package agent manages coaching personas and resolves free-form references
// to a concrete agent.
package agent

import (
	"strings"

	"github.com/ashureev/confido/internal/domain"
)

// categoryPersonas maps practice categories to the display name of the
// system persona that serves them.
var categoryPersonas = map[domain.AgentType]string{
	domain.AgentTypeInterview:    "Senior Software Engineer Interview",
	domain.AgentTypeConversation: "English Pronunciation Coach",
	domain.AgentTypeConfidence:   "TED Talk Presentation Coach",
	domain.AgentTypeNetworking:   "TED Talk Presentation Coach",
}

// PersonaForCategory returns the persona name serving a category.
func PersonaForCategory(category domain.AgentType) (string, bool) {
	name, ok := categoryPersonas[category]
	return name, ok
}

// CategoryForPersona returns the first category, in canonical order, whose
// persona has the given name.
func CategoryForPersona(name string) (domain.AgentType, bool) {
	for _, c := range domain.Categories {
		if categoryPersonas[c] == name {
			return c, true
		}
	}
	return "", false
}

// Resolve maps ref to one of available. Tiers are tried in order and the
// first tier with a match wins; within a tier the earliest element wins.
//
//  1. exact agent id
//  2. lower-cased ref names a category whose persona name equals an agent name
//  3. lower-cased agent name contains lower-cased ref
//
// The caller orders available as featured agents followed by the user's own.
// An empty ref resolves to nothing.
func Resolve(ref string, available []domain.Agent) (domain.Agent, bool) {
	if ref == "" {
		return domain.Agent{}, false
	}

	for _, a := range available {
		if a.ID == ref {
			return a, true
		}
	}

	needle := strings.ToLower(ref)

	if name, ok := categoryPersonas[domain.AgentType(needle)]; ok {
		for _, a := range available {
			if a.Name == name {
				return a, true
			}
		}
	}

	for _, a := range available {
		if strings.Contains(strings.ToLower(a.Name), needle) {
			return a, true
		}
	}
	return domain.Agent{}, false
}
