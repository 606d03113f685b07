package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedbackSession is a persisted essay-feedback record. Sessions are immutable
// once created; the store is append-only.
type FeedbackSession struct {
	ID           primitive.ObjectID `json:"id,omitempty"           bson:"_id,omitempty"`
	EssayHash    string             `json:"essayHash"              bson:"essayHash"`
	EssayText    string             `json:"essayText,omitempty"    bson:"essayText,omitempty"`
	Feedback     Feedback           `json:"feedback"               bson:"feedback"`
	Provider     string             `json:"provider"               bson:"provider"`
	WordCount    int                `json:"wordCount"              bson:"wordCount"`
	ReadingLevel string             `json:"readingLevel,omitempty" bson:"readingLevel,omitempty"`
	UserID       *string            `json:"userId"                 bson:"userId"`
	CreatedAt    time.Time          `json:"createdAt"              bson:"createdAt"`
}

func (FeedbackSession) CollectionName() string { return "feedback_sessions" }
