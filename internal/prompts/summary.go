package prompts

import "fmt"

// freshSummaryTemplate asks the model for a first-time summary of live
// history. The group-conversation framing matters: threads often have
// more than two participants, and a dialogue-shaped summary misattributes
// who said what. Verbs: word cap, then conversation text.
const freshSummaryTemplate = `The following is a group conversation between multiple participants.
Write a neutral, objective summary of it. Treat it as a multi-party group
conversation, not a two-party dialogue: attribute statements to the named
participant who made them.

Keep the summary under %d words. Respond with the summary text only.

Conversation:
%s

Summary:`

// mergeSummaryTemplate folds new messages into an existing summary.
// Verbs: word cap, previous summary, new conversation text.
const mergeSummaryTemplate = `The following is a summary of the earlier part of a group conversation,
followed by the messages exchanged since it was written. Merge them into one
neutral, objective summary of the whole conversation. Treat it as a
multi-party group conversation, not a two-party dialogue: attribute
statements to the named participant who made them.

Keep the merged summary under %d words. Respond with the summary text only.

Previous summary:
%s

New messages:
%s

Summary:`

// FreshSummary returns the prompt for summarizing a conversation that
// has never been compacted. conversationText is the formatted
// "Role: content" transcript.
func FreshSummary(conversationText string, wordCap int) string {
	return fmt.Sprintf(freshSummaryTemplate, wordCap, conversationText)
}

// MergeSummary returns the prompt for folding new messages into a
// previous summary.
func MergeSummary(previous, conversationText string, wordCap int) string {
	return fmt.Sprintf(mergeSummaryTemplate, wordCap, previous, conversationText)
}
