package conversation

import (
	"strings"

	"coopleo-web/internal/models"
)

// recommendationMarkers open the recommendations section of an assistant
// message. Matching is case-insensitive.
var recommendationMarkers = []string{
	"recommandations finales",
	"final recommendations",
}

// FinalRecommendations finds the last assistant message carrying a
// recommendations marker and returns the text from the marker to the end of
// that message.
func FinalRecommendations(messages []models.ChatMessage) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role != models.RoleAssistant {
			continue
		}
		if start := markerIndex(msg.Content); start >= 0 {
			return msg.Content[start:], true
		}
	}
	return "", false
}

// markerIndex returns the byte offset of the earliest marker in content, or -1.
func markerIndex(content string) int {
	best := -1
	for _, marker := range recommendationMarkers {
		if i := indexFold(content, marker); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

func indexFold(s, substr string) int {
	n := len(substr)
	for i := range s {
		if len(s)-i < n {
			break
		}
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}
