package troupe

import (
	"fmt"
	"strings"
)

// ──────────────────────────────────────────────
// Prompt Composer — deterministic section concatenation
// ──────────────────────────────────────────────

// ComposePrompt renders the final instruction text for the model backend
// from the persona's static template plus the decision's style modifiers.
// Sections appear in a fixed order and empty sections are skipped, so the
// output is byte-identical for byte-identical input state.
func (e *Engine) ComposePrompt(personaID string, mods StyleModifiers) (string, error) {
	e.personaMu.RLock()
	p, ok := e.personas[personaID]
	e.personaMu.RUnlock()
	if !ok {
		return "", ErrUnknownPersona
	}

	var b strings.Builder

	b.WriteString("[Identity]\n")
	b.WriteString(p.Identity)
	b.WriteString("\n")
	if p.SpeechStyle != "" {
		b.WriteString("Speech style: ")
		b.WriteString(p.SpeechStyle)
		b.WriteString("\n")
	}

	if len(mods.Frameworks) > 0 {
		b.WriteString("\n[Behavior]\n")
		for _, wf := range mods.Frameworks {
			fmt.Fprintf(&b, "(%.2f) %s\n", wf.Weight, wf.Framework.PromptFragment)
		}
	}

	if mods.MoodTone != "" {
		b.WriteString("\n[Mood]\n")
		b.WriteString(mods.MoodTone)
		b.WriteString("\n")
	}

	if len(mods.Evolution) > 0 {
		b.WriteString("\n[Growth]\n")
		for _, d := range mods.Evolution {
			b.WriteString("- ")
			b.WriteString(d)
			b.WriteString("\n")
		}
	}

	if mods.ConflictTone != "" {
		b.WriteString("\n[Tension]\n")
		b.WriteString(mods.ConflictTone)
		b.WriteString("\n")
	}

	if mods.FollowUp != nil {
		b.WriteString("\n[Follow-up]\n")
		b.WriteString(mods.FollowUp.Prompt)
		b.WriteString("\n")
	}

	if p.Verbosity != "" {
		b.WriteString("\n[Verbosity]\n")
		b.WriteString(p.Verbosity)
		b.WriteString("\n")
	}

	return b.String(), nil
}
