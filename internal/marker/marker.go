// Package marker extracts structured completion tags from free-form agent
// text. Agent output routinely quotes the tags it is asked to emit (prompt
// templates include examples like "output <phase_complete .../> when done"),
// so every extractor keeps only the last occurrence in the text. A tag that
// does not parse cleanly counts as no tag at all.
package marker

import (
	"regexp"
	"strconv"
	"strings"
)

// Gate decision values carried by a review_gate tag.
const (
	GateProceed = "proceed"
	GateBlocked = "blocked"
)

var (
	promiseRE   = regexp.MustCompile(`(?s)<promise>(.*?)</promise>`)
	storyRE     = regexp.MustCompile(`<story_complete\s+id="([^"]*)"\s*/?>`)
	phaseTagRE  = regexp.MustCompile(`<phase_complete\b([^>]*)>`)
	gateRE      = regexp.MustCompile(`<review_gate\s+status="(proceed|blocked)"\s*/?>`)
	iterLimitRE = regexp.MustCompile(`<iteration_limit>\s*(\d+)\s*</iteration_limit>`)

	phaseAttrRE    = regexp.MustCompile(`\bphase="([^"]*)"`)
	artifactAttrRE = regexp.MustCompile(`\bartifact="([^"]*)"`)
)

// LastMatch returns the capture of the final non-overlapping match of re in
// text, or the full final match if re has no capture group, or "" if re does
// not match. Matching restarts after the end of each match, so earlier
// occurrences (documentation, quoted examples) are skipped over rather than
// extended across.
func LastMatch(re *regexp.Regexp, text string) string {
	matches := re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	m := matches[len(matches)-1]
	if len(m) > 1 {
		return m[1]
	}
	return m[0]
}

// Promise returns the content of the last promise tag, trimmed, or "" if
// the text carries none.
func Promise(text string) string {
	return strings.TrimSpace(LastMatch(promiseRE, text))
}

// StoryComplete returns the item id named by the last story_complete tag.
// Non-numeric ids are rejected as unparseable.
func StoryComplete(text string) (int, bool) {
	raw := LastMatch(storyRE, text)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return id, true
}

// PhaseSignal is the parsed form of a phase_complete tag.
type PhaseSignal struct {
	Phase    string
	Artifact string
}

// PhaseComplete returns the last phase_complete tag's attributes. Both
// attributes come from the same tag occurrence; a tag without a phase
// attribute is treated as absent.
func PhaseComplete(text string) (PhaseSignal, bool) {
	attrs := LastMatch(phaseTagRE, text)
	if attrs == "" {
		return PhaseSignal{}, false
	}
	phaseMatch := phaseAttrRE.FindStringSubmatch(attrs)
	if phaseMatch == nil {
		return PhaseSignal{}, false
	}
	sig := PhaseSignal{Phase: phaseMatch[1]}
	if artifactMatch := artifactAttrRE.FindStringSubmatch(attrs); artifactMatch != nil {
		sig.Artifact = artifactMatch[1]
	}
	return sig, true
}

// GateDecision returns GateProceed or GateBlocked from the last review_gate
// tag. Any other status value fails the pattern and reads as no tag.
func GateDecision(text string) (string, bool) {
	status := LastMatch(gateRE, text)
	if status == "" {
		return "", false
	}
	return status, true
}

// IterationLimit returns the agent's recommended iteration ceiling from the
// last iteration_limit tag. Zero or unparseable recommendations are ignored.
func IterationLimit(text string) (int, bool) {
	raw := LastMatch(iterLimitRE, text)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
