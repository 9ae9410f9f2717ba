package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	// Intent labels produced by the router
	IntentKnowledge = "knowledge"
	IntentChitchat  = "chitchat"
	IntentCommand   = "command"

	// Router reasons (stable strings, asserted in tests and telemetry)
	ReasonEmptyAfterNormalization = "empty_after_normalization"
	ReasonCommandKeywordDetected  = "command_keyword_detected"
	ReasonChitchatPatternDetected = "chitchat_pattern_detected"
	ReasonStickyChitchatContext   = "sticky_chitchat_context"
	ReasonDefaultKnowledgeRoute   = "default_knowledge_route"
)

// CommandKeywords are matched as substrings of the canonical question form.
// Matching is intentionally naive: "sudo" inside a longer word still
// triggers. Do not "fix" this without revisiting the routing tests.
// Keywords are written in canonical form (lowercase, punctuation stripped),
// so "rm -rf" appears here as "rm rf".
var CommandKeywords = []string{
	"delete",
	"drop table",
	"truncate table",
	"sudo",
	"rm rf",
	"shutdown",
	"factory reset",
}

// DefaultChitchatKeywords seed the configurable chitchat prefix list.
var DefaultChitchatKeywords = []string{
	"hi",
	"hello",
	"hey",
	"thanks",
	"thank you",
	"ok",
	"okay",
	"good morning",
	"good night",
	"bye",
	"안녕",
	"고마워",
	"감사합니다",
}

const (
	// Fallback context blocks for non-knowledge intents. The generation
	// stage always receives some context text, even without retrieval.
	DefaultChitchatFallback = `The user is making small talk. Respond warmly and briefly without citing any documents, and invite them to ask a question about the knowledge base.`

	DefaultCommandFallback = `The user is asking the assistant to perform a destructive or administrative action. Politely decline, explain that the assistant can only answer questions, and do not provide instructions for the requested action.`
)
