package app

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Intent is a recognized request the chat agent turns into an approval
// request.
type Intent struct {
	Type  string
	Label string
	Reply string
}

// Summarize produces the one-line summary shown to deciders.
func (i Intent) Summarize(userName, message string) string {
	text := message
	if len(text) > 140 {
		// Back up to a rune boundary so the cut never splits a
		// multi-byte character.
		cut := 140
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "…"
	}
	return fmt.Sprintf("%s requests %s: %s", userName, i.Label, text)
}

var intents = []struct {
	keywords []string
	intent   Intent
}{
	{
		keywords: []string{"leave", "vacation", "time off", "holiday", "sick day", "pto"},
		intent: Intent{
			Type:  "leave",
			Label: "leave",
			Reply: "I've raised a leave request for you. Your manager or HR will review it and you'll get a notification once it's decided.",
		},
	},
	{
		keywords: []string{"work from home", "wfh", "remote work", "work remotely"},
		intent: Intent{
			Type:  "remote_work",
			Label: "remote work",
			Reply: "I've raised a remote work request for you. You'll be notified once it's approved or rejected.",
		},
	},
	{
		keywords: []string{"laptop", "equipment", "keyboard", "monitor", "hardware", "headset"},
		intent: Intent{
			Type:  "equipment",
			Label: "equipment",
			Reply: "I've raised an equipment request for you. The team will review it shortly.",
		},
	},
	{
		keywords: []string{"reimburse", "reimbursement", "expense", "claim"},
		intent: Intent{
			Type:  "reimbursement",
			Label: "reimbursement",
			Reply: "I've raised a reimbursement request for you. You'll hear back once it's reviewed.",
		},
	},
	{
		keywords: []string{"salary certificate", "employment letter", "experience letter", "salary slip", "payslip"},
		intent: Intent{
			Type:  "document",
			Label: "document",
			Reply: "I've raised a document request for you. HR will prepare it once the request is approved.",
		},
	},
}

// detectIntent matches a chat message against known request phrasings.
// Requests need an explicit ask; plain questions fall through to the
// policy answerer.
func detectIntent(message string) (Intent, bool) {
	lower := strings.ToLower(message)

	// Questions about rules are answered, not actioned.
	if strings.Contains(lower, "policy") || strings.Contains(lower, "how many") || strings.Contains(lower, "what is") {
		if !strings.Contains(lower, "request") && !strings.Contains(lower, "apply") {
			return Intent{}, false
		}
	}

	for _, candidate := range intents {
		for _, kw := range candidate.keywords {
			if strings.Contains(lower, kw) {
				return candidate.intent, true
			}
		}
	}
	return Intent{}, false
}
