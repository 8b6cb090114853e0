package ai

import "fmt"

// summaryPromptTemplate asks for the JSON shape ParseSummaryResponse reads back.
// The transcript is appended verbatim.
const summaryPromptTemplate = `You are an assistant that summarizes meeting transcripts.

Read the transcript below and respond with a single JSON object in exactly this shape:
{
  "overview": "a short paragraph describing what the meeting was about and its outcome",
  "keyDecisions": ["one decision made during the meeting"],
  "actionItems": [
    {"task": "what needs to be done", "assignee": "who is responsible, or an empty string if nobody was named"}
  ]
}

Rules:
- "overview" is a non-empty string.
- "keyDecisions" is a list of strings. Use [] when no decisions were made.
- "actionItems" is a list of objects with the string fields "task" and "assignee". Use [] when there are none.
- The response must be valid JSON. Do not add any text before or after the JSON object.

Transcript:
%s`

// BuildSummaryPrompt renders the summary instruction for a transcript
func BuildSummaryPrompt(transcript string) string {
	return fmt.Sprintf(summaryPromptTemplate, transcript)
}
