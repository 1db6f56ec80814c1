package nlp

import (
	"regexp"
	"strings"

	"github.com/pmcopilot/backend/internal/models"
)

var (
	reFeature = regexp.MustCompile(`(?i)\b(feature|request|enhancement|would like|nice to have|roadmap)\b`)
	reIssue   = regexp.MustCompile(`(?i)\b(bug|error|fail|failing|broken|crash|incident|downtime|not working|fix)\b`)
)

// ClassifyTicket tags a ticket as issue, feature_request or unknown from its
// text, falling back to per-source norms when the vocabularies tie.
func ClassifyTicket(source, title, content, labelsCSV, status string) string {
	text := strings.ToLower(title + " " + content + " " + labelsCSV + " " + status)

	feature := reFeature.MatchString(text)
	issue := reIssue.MatchString(text)

	if feature && !issue {
		return models.TypeFeatureRequest
	}
	if issue && !feature {
		return models.TypeIssue
	}

	// Both or neither matched: jira items skew engineering, helpdesk items
	// skew requests.
	switch source {
	case "jira":
		return models.TypeIssue
	case "zendesk":
		return models.TypeFeatureRequest
	}
	return models.TypeUnknown
}
