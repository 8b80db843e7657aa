package completion

import (
	"fmt"
	"strings"
)

// charsPerToken is a rough estimate shared by the supported providers.
const charsPerToken = 4

const truncationMarker = "\n\n[... truncated ...]\n"

func estimateTokens(s string) int {
	return (len(s) + charsPerToken - 1) / charsPerToken
}

// truncateToTokens cuts s so it fits within tokens, keeping the head.
func truncateToTokens(s string, tokens int) (string, bool) {
	if tokens <= 0 {
		return truncationMarker, s != ""
	}
	limit := tokens * charsPerToken
	if len(s) <= limit {
		return s, false
	}
	limit -= len(truncationMarker)
	if limit < 0 {
		limit = 0
	}
	// Back off to a rune boundary.
	for limit > 0 && limit < len(s) && s[limit]&0xC0 == 0x80 {
		limit--
	}
	return s[:limit] + truncationMarker, true
}

func reviewPrompt(appName string, groundTruths []string, body string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a code reviewer checking whether a pull request implements its task specification.\n\n", appName)
	sb.WriteString("Ground truths the implementation must satisfy:\n")
	for _, gt := range groundTruths {
		fmt.Fprintf(&sb, "- %s\n", gt)
	}
	sb.WriteString(`
Review the pull request below against the specification and the ground truths.
Answer with a single JSON object and nothing else:
{"confidenceThreshold": <number between 0 and 1, how confident you are the pull request fulfils the specification>, "reviewComment": "<markdown review for the author>"}

`)
	sb.WriteString(body)
	return sb.String()
}

func groundTruthPrompt(appName, specification string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s. Extract the concrete, checkable requirements from the task specification below.\n", appName)
	sb.WriteString("Answer with a JSON array of short strings, one requirement each, and nothing else.\n\n")
	sb.WriteString("Specification:\n")
	sb.WriteString(strings.TrimSpace(specification))
	sb.WriteString("\n")
	return sb.String()
}
