// Package prompts contains all LLM prompt templates used internally by Aiko.
//
// Prompt text is Go code rather than config files because it is program logic:
// templates use fmt.Sprintf interpolation, benefit from compile-time embedding,
// and can be validated by tests. User-facing persona text lives in the persona
// card; this package holds the instructions we send to models for internal
// operations (history summarization).
//
// Convention: each prompt category gets its own file with an exported function
// that accepts the dynamic parts and returns the fully interpolated prompt
// string.
package prompts
