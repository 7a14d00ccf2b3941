// Package phase defines the named-phase feature workflow: classify,
// interview, research, draft, review gate, generate, handoff. The
// adjacency table is static; the review gate is the only phase where
// the walk can branch.
package phase

import (
	"fmt"
	"strings"
)

// Phase is one step of the workflow.
type Phase struct {
	ID   string
	Name string

	// Next is the successor phase id. Empty means completing this
	// phase ends the workflow.
	Next string

	// Gate marks a review phase that advances on an explicit
	// proceed/blocked decision instead of a completion marker.
	Gate bool

	// RequiresArtifact means the completion marker must name a file
	// the phase produced.
	RequiresArtifact bool
}

var table = []Phase{
	{ID: "0", Name: "classify", Next: "1"},
	{ID: "1", Name: "interview", Next: "2"},
	{ID: "2", Name: "research", Next: "3", RequiresArtifact: true},
	{ID: "3", Name: "draft", Next: "3.5", RequiresArtifact: true},
	{ID: "3.5", Name: "review", Next: "4", Gate: true},
	{ID: "4", Name: "generate", Next: "5", RequiresArtifact: true},
	{ID: "5", Name: "handoff", Next: ""},
}

// First returns the entry phase of the workflow.
func First() Phase {
	return table[0]
}

// Lookup returns the phase with the given id.
func Lookup(id string) (Phase, bool) {
	for _, p := range table {
		if p.ID == id {
			return p, true
		}
	}
	return Phase{}, false
}

// All returns the workflow in walk order.
func All() []Phase {
	out := make([]Phase, len(table))
	copy(out, table)
	return out
}

func (p Phase) String() string {
	return p.ID + " " + p.Name
}

// Marker returns the literal tag the phase expects to see.
func (p Phase) Marker() string {
	if p.Gate {
		return `<review_gate status="proceed"/> or <review_gate status="blocked"/>`
	}
	if p.RequiresArtifact {
		return fmt.Sprintf(`<phase_complete phase=%q artifact="<path>"/>`, p.ID)
	}
	return fmt.Sprintf(`<phase_complete phase=%q/>`, p.ID)
}

// Satisfied reports whether a phase-completion signal fulfils phase p.
// Gate phases never advance this way; they take review decisions.
func Satisfied(p Phase, phaseID, artifact string) bool {
	if p.Gate {
		return false
	}
	if phaseID != p.ID {
		return false
	}
	if p.RequiresArtifact && strings.TrimSpace(artifact) == "" {
		return false
	}
	return true
}

// Prompt renders the working instruction for a phase. Each prompt is
// self-contained since the agent may start the phase from an empty
// context.
func Prompt(p Phase, feature string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Feature workflow for %q. Current phase: %s.\n\n", feature, p)

	switch p.ID {
	case "0":
		sb.WriteString("Classify this feature request. State its size (small, medium, large), " +
			"its risk, and which areas of the codebase it touches. " +
			"Record the classification at the top of your reply.\n")
	case "1":
		sb.WriteString("Interview for requirements. List the questions a developer would need " +
			"answered before building this feature, then answer each from the repository " +
			"and any available documents. Flag the ones only a human can answer.\n")
	case "2":
		sb.WriteString("Research the codebase. Find the modules, data flows, and conventions " +
			"this feature must fit into, and write your findings to a research notes file.\n")
	case "3":
		sb.WriteString("Draft the feature document. Using the research notes, write a full " +
			"draft covering behavior, data model, and acceptance criteria to a new file.\n")
	case "3.5":
		sb.WriteString("Review the draft against the research notes and the codebase. " +
			"List every gap, contradiction, or missing acceptance criterion you find. " +
			"Fix what you can in place.\n")
	case "4":
		sb.WriteString("Generate the task list. Break the approved draft into ordered, " +
			"independently verifiable stories and write them to a task list file.\n")
	case "5":
		sb.WriteString("Hand off. Summarize what was produced in each phase, where the " +
			"artifacts live, and what a human should look at first.\n")
	}

	sb.WriteString("\n")
	switch {
	case p.Gate:
		sb.WriteString(`If the draft is sound, end your reply with <review_gate status="proceed"/>. ` +
			"If it must go back to the author, end with " +
			`<review_gate status="blocked"/> after listing the blocking findings.` + "\n")
	case p.RequiresArtifact:
		fmt.Fprintf(&sb, "When the file is written, end your reply with "+
			`<phase_complete phase=%q artifact="<path>"/> naming the real path.`+"\n", p.ID)
	default:
		fmt.Fprintf(&sb, "When done, end your reply with <phase_complete phase=%q/>.\n", p.ID)
	}
	return sb.String()
}

// HintPrompt is the retry instruction when an evaluation saw no usable
// marker: the same phase prompt plus an explicit reminder of the tag.
func HintPrompt(p Phase, feature string) string {
	return Prompt(p, feature) + fmt.Sprintf(
		"\nYour previous reply did not end with the expected marker. "+
			"The workflow only advances when it sees %s as the final line.\n", p.Marker())
}

// BlockedPrompt is issued after a review gate rejects the draft.
func BlockedPrompt(p Phase, feature string, reviews int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Feature workflow for %q. Current phase: %s.\n\n", feature, p)
	fmt.Fprintf(&sb, "The review was blocked (block %d). Address every blocking finding "+
		"from the previous review, update the draft, then review it again.\n\n", reviews)
	sb.WriteString(`End with <review_gate status="proceed"/> once nothing blocks, or ` +
		`<review_gate status="blocked"/> with the remaining findings.` + "\n")
	return sb.String()
}

// RecoveryPrompt is the escalation instruction once retries are
// exhausted. It surfaces the last recorded problem and asks for either
// the marker or an explanation a human can act on.
func RecoveryPrompt(p Phase, feature, lastError string, retries int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Feature workflow for %q has been stuck on phase %s for %d attempts.\n",
		feature, p, retries)
	if lastError != "" {
		fmt.Fprintf(&sb, "Last recorded problem: %s\n", lastError)
	}
	fmt.Fprintf(&sb, "\nEither finish the phase and end your reply with %s, "+
		"or explain exactly what is blocking you so a human can take over. "+
		"Do not continue with other work.\n", p.Marker())
	return sb.String()
}
