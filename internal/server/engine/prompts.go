package engine

import (
	"fmt"
	"strings"
)

// extractSystemPrompt instructs the model to map a raw transcript onto the
// template's placeholder fields.
const extractSystemPrompt = `You are an expert scribe AI. Your job is to parse a raw audio transcription and extract structured information to fill in a document template.

RULES:
1. Correct obvious transcription errors (spelling, terminology).
2. Be concise but professional.
3. If info is missing, write "Not mentioned".
4. For date fields, use today's date if not mentioned (YYYY-MM-DD).
5. CRITICAL: Return a FLAT JSON object. All values MUST be strings. Do not use nested objects or arrays.
6. If a value is a list (e.g., findings), join the items with commas.
7. If the template contains numbered fields (e.g., Item 1, Item 2), distribute the items found in the transcript into these fields sequentially.
8. Use the TEMPLATE STRUCTURE below to understand the format, tone, and style.
9. If the template contains example/filled values, treat them as EXAMPLES. Extract the NEW value from the transcription. Do not copy the example values unless they are static text.`

// inferSystemPrompt instructs the model to discover the variable fields of a
// template that carries no bracketed placeholders.
const inferSystemPrompt = `You are an expert document analyzer.
The user provides a FILLED template text (e.g. from a previous document) and a new transcription.
Your job is to:
1. Identify the variable fields in the template (e.g. "Name: Mr. Ali" -> Field: "Name", Original: "Mr. Ali").
2. Extract the NEW value for that field from the transcription (e.g. New: "Jane Doe").
3. Return a JSON object where keys are Field Names, and values are objects containing:
   - "original": The EXACT text value currently in the template (to be replaced).
   - "new": The new value extracted from the transcript.
4. If a "new" value is not mentioned in the transcript, set "new" to "Not mentioned".
5. EXCEPTION: If the field is a Date or Review Date, set "new" to today's date (YYYY-MM-DD) if not mentioned. Do not use "Not mentioned" for dates.
6. IMPORTANT: The "original" value must be unique enough to be replaced safely. If the value is generic (e.g. "No"), include surrounding context if possible or skip.
7. Return purely valid JSON.`

func extractUserPrompt(transcript string, placeholders []string, templateText string) string {
	var list strings.Builder
	for _, p := range placeholders {
		fmt.Fprintf(&list, "- %s\n", p)
	}

	return fmt.Sprintf(`Raw Transcription:
%s

TEMPLATE STRUCTURE (Context):
%s

Extract data for these SPECIFIC fields (placeholders):
%s
Return ONLY a valid, flat JSON object mapping field names to string values.`,
		transcript, templateText, list.String())
}

func inferUserPrompt(transcript, templateText string) string {
	return fmt.Sprintf(`Template Context (Filled):
%s

New Transcription:
%s

Return JSON mapping fields to original/new values.`,
		templateText, transcript)
}
