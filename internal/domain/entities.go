package domain

import (
	"fmt"
	"time"
)

// KnowledgeEntry is one row of the Q&A dataset. Its position in the corpus
// is the join key into the similarity index.
type KnowledgeEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Context  string `json:"context"`
}

// NewKnowledgeEntry builds an entry with its embedding context.
func NewKnowledgeEntry(question, answer string) KnowledgeEntry {
	return KnowledgeEntry{
		Question: question,
		Answer:   answer,
		Context:  BuildContext(question, answer),
	}
}

// BuildContext returns the text that is embedded for an entry.
func BuildContext(question, answer string) string {
	return fmt.Sprintf("Question: %s\nAnswer: %s", question, answer)
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ConversationTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Match is a nearest-neighbour hit against the corpus.
type Match struct {
	Position int            `json:"position"`
	Distance float32        `json:"distance"`
	Entry    KnowledgeEntry `json:"entry"`
}

type CorpusStats struct {
	Entries   int           `json:"entries"`
	Dimension int           `json:"dimension"`
	Model     string        `json:"model"`
	Sources   []string      `json:"sources"`
	BuildTime time.Duration `json:"build_time"`
	CacheHits int           `json:"cache_hits"`
}
