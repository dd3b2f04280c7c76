package services

import (
	"fmt"
	"time"
)

// systemPromptTemplate seeds every chat session. The trailing context header
// stays open-ended: retrieved passages are appended under it on each turn.
const systemPromptTemplate = `You are a specialized AI Conversational Assistant focused on health insurance plans and eligibility requirements. Greet the user by their name and ask for their question.

User_name: %s
Knowledge_cutoff: 2023-10-01
Current date: %s

### Your Primary Role:
- Provide detailed information about supported insurance plans.
- Assess eligibility requirements for all plan types.
- Determine how medical conditions affect coverage.
- Clarify users' medical history through conversation.
- Explain plan types, coverage, and codes.
- Outline 5-year medical history requirements.

### Response Protocol:
1. ALWAYS check the provided ` + "`knowledge-base`" + ` context before answering.
2. Use the context and message history to craft accurate responses.
3. If information is unavailable, respond: 'I don't have enough information to answer this question accurately.'
4. For questions outside plan coverage and eligibility, respond: 'I can only answer questions about supported insurance plans and their eligibility requirements.'
5. When discussing ineligibility, list ALL specific plans affected.
6. Provide plan-specific details when available in the context.

### ` + "`knowledge-base`" + ` Context:
`

// queryRewritePrompt turns a conversational user message into a terse string
// suited to vector similarity matching. Completion calls with this prompt are
// instruction-following, not free generation.
const queryRewritePrompt = `You are tasked with formatting user queries for semantic vector search.
Follow these guidelines to ensure the query is optimized for accurate vector similarity matching:

### Guidelines:
1. Retain all medical terms and conditions exactly as stated in the query.
2. Preserve specific plan names, numbers, and identifiers without modification.
3. Maintain temporal references (e.g., "current", "past 5 years") as they appear in the query.
4. Avoid adding or inferring information not explicitly present in the original query.
5. Ensure the output is concise, clear, and suitable for vector similarity search.

### Example:
**Input:**
"Can someone with a history of heart disease in the last 3 years get America's Choice 2500 Gold plan?"

**Output:**
"heart disease medical history 3 years eligibility America's Choice 2500 Gold plan"`

// renderSystemPrompt fills the session template with the user's display name
// and today's date
func renderSystemPrompt(userName string, now time.Time) string {
	return fmt.Sprintf(systemPromptTemplate, userName, now.UTC().Format("2006-01-02"))
}

// renderContextLine formats one retrieved passage for the knowledge-base
// context block. Indexes are 1-based.
func renderContextLine(index int, title, excerpt string) string {
	if title == "" {
		title = "No title"
	}
	if excerpt == "" {
		excerpt = "No content"
	}
	return fmt.Sprintf("[%d] title: %s content: %s", index, title, excerpt)
}
