package contextbuild

import "strings"

// Prompt intents, ordered by detection priority.
const (
	IntentRecentWork = "recent_work"
	IntentShowcase   = "showcase"
	IntentLearning   = "learning"
	IntentGeneral    = "general"
)

// PromptAnalysis is a lightweight keyword reading of the prompt. It never
// calls a model; the buckets are fixed.
type PromptAnalysis struct {
	Topics []string
	Intent string
	Length int
}

type topicBucket struct {
	label    string
	keywords []string
}

// Bucket order is fixed so Topics comes out in a stable order.
var topicBuckets = []topicBucket{
	{"API Development", []string{"api", "endpoint", "service", "rest"}},
	{"Machine Learning", []string{"ml", "machine learning", "ai", "model"}},
	{"Bug Fixes", []string{"bug", "fix", "issue", "resolved"}},
	{"New Features", []string{"feature", "new", "added", "implemented"}},
	{"Frontend", []string{"ui", "frontend", "design", "interface"}},
	{"Backend", []string{"backend", "server", "database"}},
}

var intentBuckets = []struct {
	intent   string
	keywords []string
}{
	{IntentRecentWork, []string{"recent", "latest", "today", "this week"}},
	{IntentShowcase, []string{"achievement", "proud", "success"}},
	{IntentLearning, []string{"learning", "learned", "discovered"}},
}

// AnalyzePrompt detects topics and intent from the prompt's keywords.
// The first matching intent bucket wins; no match means IntentGeneral.
func AnalyzePrompt(prompt string) PromptAnalysis {
	lower := strings.ToLower(prompt)

	analysis := PromptAnalysis{
		Intent: IntentGeneral,
		Length: len(strings.Fields(prompt)),
	}

	for _, bucket := range topicBuckets {
		for _, keyword := range bucket.keywords {
			if strings.Contains(lower, keyword) {
				analysis.Topics = append(analysis.Topics, bucket.label)
				break
			}
		}
	}

	for _, bucket := range intentBuckets {
		for _, keyword := range bucket.keywords {
			if strings.Contains(lower, keyword) {
				analysis.Intent = bucket.intent
				return analysis
			}
		}
	}
	return analysis
}

// topicQueries expands shorthand topics into richer search queries.
var topicQueries = map[string]string{
	"api":     "API endpoints and services development",
	"ml":      "machine learning and AI models",
	"bug":     "bug fixes and issue resolution",
	"feature": "new features and functionality",
	"ui":      "user interface and frontend design",
	"backend": "backend services and database work",
}

// ExpandTopic turns a shorthand topic into a fuller query string. Unknown
// topics pass through unchanged.
func ExpandTopic(topic string) string {
	if query, ok := topicQueries[strings.ToLower(topic)]; ok {
		return query
	}
	return topic
}
