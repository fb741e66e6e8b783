package db

import (
	"time"

	"github.com/japaniel/wikireader/pkg/analysis"
)

// Article is a stored analysis snapshot. Only PersonalNotes changes after creation.
type Article struct {
	ID                    int64                `json:"id"`
	WikipediaTitle        string               `json:"wikipedia_title"`
	WikipediaURL          string               `json:"wikipedia_url"`
	ProcessedSummary      string               `json:"processed_summary"`
	WordCount             int                  `json:"word_count"`
	FrequentWords         []analysis.WordCount `json:"frequent_words"`
	SentimentPolarity     *float64             `json:"sentiment_polarity"`
	SentimentSubjectivity *float64             `json:"sentiment_subjectivity"`
	SentimentLabel        *string              `json:"sentiment_label"`
	UserID                int64                `json:"user_id"`
	CreatedAt             time.Time            `json:"created_at"`
	SavedAt               time.Time            `json:"saved_at"`
	PersonalNotes         *string              `json:"personal_notes"`
}

// NewArticle is the input to CreateArticle. SentimentLabel is accepted for
// compatibility but always recomputed from SentimentPolarity.
type NewArticle struct {
	WikipediaTitle        string               `json:"wikipedia_title"`
	WikipediaURL          string               `json:"wikipedia_url"`
	ProcessedSummary      string               `json:"processed_summary"`
	WordCount             int                  `json:"word_count"`
	FrequentWords         []analysis.WordCount `json:"frequent_words"`
	SentimentPolarity     *float64             `json:"sentiment_polarity"`
	SentimentSubjectivity *float64             `json:"sentiment_subjectivity"`
	SentimentLabel        *string              `json:"sentiment_label"`
	UserID                int64                `json:"user_id"`
	PersonalNotes         *string              `json:"personal_notes"`
}
