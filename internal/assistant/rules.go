// Package assistant implements the reference chat backend behind POST /chat.
package assistant

import (
	"regexp"
	"strings"
)

// Rule is a canned reply for messages matching Pattern.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Reply   string
}

// DefaultRules are checked in order; more specific rules come first.
var DefaultRules = []Rule{
	{
		Name:    "greeting",
		Pattern: regexp.MustCompile(`(?i)\b(hi|hello|hey|yo|good morning|good afternoon|good evening)\b`),
		Reply:   "Hello! How can I help you today?",
	},
	{
		Name:    "farewell",
		Pattern: regexp.MustCompile(`(?i)\b(bye|goodbye|see you|see ya|talk later|take care)\b`),
		Reply:   "Goodbye! Have a great day!",
	},
	{
		Name:    "thanks",
		Pattern: regexp.MustCompile(`(?i)\b(thanks|thank you|thx|much appreciated)\b`),
		Reply:   "You're welcome! 😊",
	},
	{
		Name:    "help",
		Pattern: regexp.MustCompile(`(?i)\b(help|assist|support|what can you do|what are your capabilities)\b`),
		Reply: "I'm a personal assistant bot. I can answer general questions, help with small tasks, " +
			"and guide you. Try asking me anything or say 'give me an example'.",
	},
	{
		Name:    "identity",
		Pattern: regexp.MustCompile(`(?i)\b(who (are|r) you|what is your name|your name)\b`),
		Reply:   "I'm your personal assistant bot. You can call me Furhi Bot.",
	},
	{
		Name:    "empty",
		Pattern: regexp.MustCompile(`^\s*$`),
		Reply:   "Please type something so I can help.",
	},
}

// Rules answers messages that do not need a model.
type Rules []Rule

// Match returns the first matching rule.
func (rs Rules) Match(message string) (Rule, bool) {
	text := strings.TrimSpace(message)
	for _, r := range rs {
		if r.Pattern.MatchString(text) {
			return r, true
		}
	}
	return Rule{}, false
}
