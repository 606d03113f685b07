package essay

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/admitlens/core/internal/models"
	"github.com/admitlens/core/internal/pkg/response"
)

// Generator is the provider-adapter port consumed by the service.
type Generator interface {
	Name() string
	Generate(ctx context.Context, essayText string) (*models.Feedback, error)
}

// ProcessOptions control persistence of a generation request.
type ProcessOptions struct {
	Save   bool
	UserID *string
}

// ProcessResult carries the feedback and, when saved, the new session id.
type ProcessResult struct {
	Feedback  *models.Feedback
	SessionID string
}

// Service orchestrates the content-addressed feedback cache: fingerprint,
// lookup, generate on miss, clamp, optionally persist. It owns the decision
// of whether a session record is written.
type Service struct {
	repo    Repository
	adapter Generator
	logger  *zap.Logger
}

func NewService(repo Repository, adapter Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, adapter: adapter, logger: logger}
}

// HashEssay computes the essay fingerprint used as the cache key.
func HashEssay(essayText string) string {
	sum := sha256.Sum256([]byte(essayText))
	return fmt.Sprintf("%x", sum)
}

// Process returns feedback for the essay, reusing any previously computed
// result for identical text. The cache is content-addressed, not
// time-bounded: a stored result wins even if the provider configuration has
// changed since. When opts.Save is set a new session document is written on
// cache hits too, so every saved request keeps its own audit record.
func (s *Service) Process(ctx context.Context, essayText string, opts ProcessOptions) (*ProcessResult, error) {
	essayHash := HashEssay(essayText)
	wordCount := WordCount(essayText)

	existing, err := s.repo.FindByHash(ctx, essayHash)
	if err != nil {
		return nil, response.Internal(err)
	}

	var feedback *models.Feedback
	if existing != nil {
		cached := existing.Feedback
		if err := ValidateFeedback(&cached); err != nil {
			// A stored document that no longer validates is a defect, not a
			// provider problem.
			return nil, response.Internal(err)
		}
		feedback = &cached
		s.logger.Debug("feedback cache hit", zap.String("essay_hash", essayHash))
	} else {
		feedback, err = s.adapter.Generate(ctx, essayText)
		if err != nil {
			if errors.Is(err, ErrInvalidFeedback) {
				return nil, response.Internal(err)
			}
			return nil, response.Provider(err.Error(), nil)
		}
	}

	clampBuckets(feedback)

	result := &ProcessResult{Feedback: feedback}
	if opts.Save {
		doc := &models.FeedbackSession{
			EssayHash:    essayHash,
			EssayText:    essayText,
			Feedback:     *feedback,
			Provider:     s.adapter.Name(),
			WordCount:    wordCount,
			ReadingLevel: feedback.ReadingLevel,
			UserID:       opts.UserID,
			CreatedAt:    time.Now().UTC(),
		}
		id, err := s.repo.Insert(ctx, doc)
		if err != nil {
			return nil, response.Internal(err)
		}
		result.SessionID = id
	}

	return result, nil
}

// ListRecent returns the user's latest sessions, essay text excluded.
func (s *Service) ListRecent(ctx context.Context, userID string, limit int) ([]models.FeedbackSession, error) {
	items, err := s.repo.ListRecentByUser(ctx, userID, limit)
	if err != nil {
		return nil, response.Internal(err)
	}
	return items, nil
}

// clampBuckets normalizes every score into [1,5] regardless of source.
// Providers are not trusted to respect bounds; this runs independently of any
// adapter-internal clamping.
func clampBuckets(fb *models.Feedback) {
	fb.Buckets.Clarity.Score = ClampScore(fb.Buckets.Clarity.Score)
	fb.Buckets.Structure.Score = ClampScore(fb.Buckets.Structure.Score)
	fb.Buckets.Storytelling.Score = ClampScore(fb.Buckets.Storytelling.Score)
}
