package staleness

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/corpus-refresh/internal/config"
)

// DefaultWindow is used when the record has no usable analysis date.
const DefaultWindow = "past 60 days"

// SearchWindow describes the period the oracle should search. A record
// enhanced before is searched since that date.
func SearchWindow(last time.Time, ok bool, now time.Time) string {
	if !ok || last.IsZero() {
		return DefaultWindow
	}
	days := int(now.Sub(last).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return fmt.Sprintf("since %s (%d days ago)", last.Format(config.DateLayout), days)
}

// PromptInput carries everything the staleness prompt embeds.
type PromptInput struct {
	Restrictions string
	RecordName   string
	Section      string
	Topic        string
	Content      string
	Evidence     string
	Window       string
}

const trainingExamples = `TRAINING EXAMPLES:

EXAMPLE 1 - NO UPDATE NEEDED (Complete data):
Current data: Has comprehensive recent information covering key areas
Search results: Routine diplomatic meetings, general policy discussions
DECISION: NO UPDATE - Current data is comprehensive, no significant new developments found

EXAMPLE 2 - NO UPDATE NEEDED (Recent but minor events):
Current data: "Recent trade discussions ongoing, $2B investment planned for 2024"
Search results: Trade officials met last week to discuss ongoing investment timeline
DECISION: NO UPDATE - This meeting is about existing planned investment, not a new development

EXAMPLE 3 - UPDATE NEEDED (Major new development):
Current data: "Defense cooperation limited to information sharing"
Search results: Major new defense agreement signed 2 weeks ago worth $5 billion for joint missile defense
DECISION: UPDATE NEEDED - Significant new defense agreement not reflected in current data

EXAMPLE 4 - NO UPDATE NEEDED (Already covered):
Current data: "Major trade agreement signed in November 2024, expected to increase trade by 40%"
Search results: Articles discussing the November 2024 trade agreement and its implementation
DECISION: NO UPDATE - This agreement is already captured in current data`

// BuildPrompt renders the conservative staleness prompt.
func BuildPrompt(in PromptInput) string {
	topic := in.Topic
	if topic == "" {
		topic = in.Section
	}

	var b strings.Builder
	b.WriteString(in.Restrictions)
	b.WriteString("\n\n")
	b.WriteString("You are a CONSERVATIVE analyst. Your job is to determine if there are SIGNIFICANT NEW developments that are MISSING from the current data and should be added.\n\n")
	b.WriteString("CRITICAL INSTRUCTIONS:\n")
	fmt.Fprintf(&b, "1. ONLY recommend updates if there are CONCRETE NEW developments %s that are NOT already reflected in the current data\n", in.Window)
	b.WriteString(`2. DO NOT recommend updates for:
   - Adding more detail to existing information
   - Updating language or formatting
   - Including background/historical context
   - Minor routine events (meetings, statements, etc.)
   - Information that is already captured in the current data
3. ONLY recommend updates for SIGNIFICANT NEW events like:
   - New major agreements SIGNED
   - New substantial policy changes IMPLEMENTED
   - Major new investments ANNOUNCED and CONFIRMED
   - Significant diplomatic incidents or breakthroughs
   - Concrete new cooperation initiatives LAUNCHED
`)
	fmt.Fprintf(&b, "\nSEARCH FOCUS: Search specifically for events %s between US and %s related to %s.\n", in.Window, in.RecordName, topic)
	b.WriteString("USE ONLY TRUSTWORTHY SOURCES from the approved list above.\n\n")
	b.WriteString("DIPLOMATIC FEEDS CONTEXT:\n")
	b.WriteString(in.Evidence)
	fmt.Fprintf(&b, "\n\nCURRENT %s DATA FOR %s:\n", in.Section, in.RecordName)
	b.WriteString(in.Content)
	b.WriteString("\n\n")
	b.WriteString(trainingExamples)
	b.WriteString(`

RESPONSE FORMAT (EXACT):
DECISION: [UPDATE NEEDED/NO UPDATE]
REASONING: [Explain what NEW developments were found that are missing from current data, or why no updates needed]
NEW_DEVELOPMENTS: [List only CONCRETE new events with dates, or "None found"]
`)
	return b.String()
}
