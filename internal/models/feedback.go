package models

// Bucket names the three fixed feedback rubrics.
type Bucket string

const (
	BucketClarity      Bucket = "Clarity"
	BucketStructure    Bucket = "Structure"
	BucketStorytelling Bucket = "Storytelling"
)

// FeedbackItem is a single issue/suggestion pair within a bucket.
type FeedbackItem struct {
	Issue      string `json:"issue"             bson:"issue"             validate:"required,min=2"`
	Suggestion string `json:"suggestion"        bson:"suggestion"        validate:"required,min=2"`
	Example    string `json:"example,omitempty" bson:"example,omitempty"`
}

// BucketFeedback scores one rubric and lists its highlights.
type BucketFeedback struct {
	Score      int            `json:"score"      bson:"score"      validate:"min=1,max=5"`
	Highlights []FeedbackItem `json:"highlights" bson:"highlights" validate:"required,min=1,dive"`
}

// FeedbackBuckets is the fixed mapping of the three rubrics. Using a struct
// rather than a map makes the exactly-three-keys contract a compile-time fact.
type FeedbackBuckets struct {
	Clarity      BucketFeedback `json:"Clarity"      bson:"Clarity"`
	Structure    BucketFeedback `json:"Structure"    bson:"Structure"`
	Storytelling BucketFeedback `json:"Storytelling" bson:"Storytelling"`
}

// Feedback is the central value object. No component mutates a Feedback after
// it has passed schema validation, except the explicit score clamp.
type Feedback struct {
	Summary      []string        `json:"summary"                bson:"summary"                validate:"required,min=3,max=5,dive,min=2"`
	Buckets      FeedbackBuckets `json:"buckets"                bson:"buckets"`
	ReadingLevel string          `json:"readingLevel,omitempty" bson:"readingLevel,omitempty"`
}
