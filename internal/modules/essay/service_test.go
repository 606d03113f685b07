package essay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admitlens/core/internal/models"
	"github.com/admitlens/core/internal/pkg/response"
)

type fakeRepo struct {
	mu      sync.Mutex
	docs    []models.FeedbackSession
	ids     []string
	nextID  int
	findErr error
}

func (r *fakeRepo) Insert(_ context.Context, doc *models.FeedbackSession) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := fmt.Sprintf("session-%d", r.nextID)
	r.docs = append(r.docs, *doc)
	r.ids = append(r.ids, id)
	return id, nil
}

func (r *fakeRepo) FindByHash(_ context.Context, essayHash string) (*models.FeedbackSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for i := range r.docs {
		if r.docs[i].EssayHash == essayHash {
			doc := r.docs[i]
			return &doc, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) ListRecentByUser(_ context.Context, userID string, limit int) ([]models.FeedbackSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := []models.FeedbackSession{}
	for i := len(r.docs) - 1; i >= 0 && len(items) < limit; i-- {
		doc := r.docs[i]
		if doc.UserID != nil && *doc.UserID == userID {
			doc.EssayText = ""
			items = append(items, doc)
		}
	}
	return items, nil
}

func (r *fakeRepo) EnsureIndexes(context.Context) error { return nil }

type stubGenerator struct {
	calls int
	fb    *models.Feedback
	err   error
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Generate(context.Context, string) (*models.Feedback, error) {
	g.calls++
	return g.fb, g.err
}

func strPtr(s string) *string { return &s }

func TestProcessGeneratesAndSaves(t *testing.T) {
	repo := &fakeRepo{}
	gen := &stubGenerator{fb: Analyze(narrativeEssay)}
	svc := NewService(repo, gen, nil)

	res, err := svc.Process(context.Background(), narrativeEssay, ProcessOptions{
		Save:   true,
		UserID: strPtr("user-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "session-1", res.SessionID)
	assert.Equal(t, 1, gen.calls)

	require.Len(t, repo.docs, 1)
	doc := repo.docs[0]
	assert.Equal(t, HashEssay(narrativeEssay), doc.EssayHash)
	assert.Equal(t, narrativeEssay, doc.EssayText)
	assert.Equal(t, "stub", doc.Provider)
	assert.Equal(t, WordCount(narrativeEssay), doc.WordCount)
	assert.Equal(t, res.Feedback.ReadingLevel, doc.ReadingLevel)
	require.NotNil(t, doc.UserID)
	assert.Equal(t, "user-1", *doc.UserID)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestProcessReusesCachedFeedback(t *testing.T) {
	repo := &fakeRepo{}
	gen := &stubGenerator{fb: Analyze(narrativeEssay)}
	svc := NewService(repo, gen, nil)

	first, err := svc.Process(context.Background(), narrativeEssay, ProcessOptions{Save: true})
	require.NoError(t, err)

	second, err := svc.Process(context.Background(), narrativeEssay, ProcessOptions{})
	require.NoError(t, err)

	// Identical text hits the stored result; the provider runs once.
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, first.Feedback, second.Feedback)
	assert.Empty(t, second.SessionID)
}

func TestProcessSavesNewSessionOnCacheHit(t *testing.T) {
	repo := &fakeRepo{}
	gen := &stubGenerator{fb: Analyze(narrativeEssay)}
	svc := NewService(repo, gen, nil)

	first, err := svc.Process(context.Background(), narrativeEssay, ProcessOptions{Save: true})
	require.NoError(t, err)
	second, err := svc.Process(context.Background(), narrativeEssay, ProcessOptions{Save: true})
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, first.Feedback, second.Feedback)
	assert.Len(t, repo.docs, 2)
}

func TestProcessClampsOutOfRangeScores(t *testing.T) {
	fb := Analyze(narrativeEssay)
	fb.Buckets.Clarity.Score = 9
	fb.Buckets.Storytelling.Score = -2

	svc := NewService(&fakeRepo{}, &stubGenerator{fb: fb}, nil)

	res, err := svc.Process(context.Background(), narrativeEssay, ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Feedback.Buckets.Clarity.Score)
	assert.Equal(t, 1, res.Feedback.Buckets.Storytelling.Score)
	assert.Equal(t, 3, res.Feedback.Buckets.Structure.Score)
}

func TestProcessMapsProviderFailureToBadGateway(t *testing.T) {
	svc := NewService(&fakeRepo{}, &stubGenerator{err: errors.New("upstream down")}, nil)

	_, err := svc.Process(context.Background(), narrativeEssay, ProcessOptions{})
	require.Error(t, err)

	var appErr *response.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, response.CodeProviderError, appErr.Code)
	assert.Equal(t, 502, appErr.Status)
}

func TestProcessMapsInvalidOutputToInternal(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("%w: missing summary", ErrInvalidFeedback)}
	svc := NewService(&fakeRepo{}, gen, nil)

	_, err := svc.Process(context.Background(), narrativeEssay, ProcessOptions{})
	require.Error(t, err)

	var appErr *response.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, response.CodeInternal, appErr.Code)
}

func TestProcessRejectsCorruptCachedDocument(t *testing.T) {
	bad := *Analyze(narrativeEssay)
	bad.Buckets.Clarity.Score = 0
	repo := &fakeRepo{docs: []models.FeedbackSession{{
		EssayHash: HashEssay(narrativeEssay),
		Feedback:  bad,
	}}}
	gen := &stubGenerator{fb: Analyze(narrativeEssay)}
	svc := NewService(repo, gen, nil)

	_, err := svc.Process(context.Background(), narrativeEssay, ProcessOptions{})
	require.Error(t, err)

	var appErr *response.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, response.CodeInternal, appErr.Code)
	assert.Equal(t, 0, gen.calls)
}

func TestProcessMapsRepoFailureToInternal(t *testing.T) {
	repo := &fakeRepo{findErr: errors.New("connection reset")}
	svc := NewService(repo, &stubGenerator{fb: Analyze(narrativeEssay)}, nil)

	_, err := svc.Process(context.Background(), narrativeEssay, ProcessOptions{})
	require.Error(t, err)

	var appErr *response.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, response.CodeInternal, appErr.Code)
}

func TestHashEssay(t *testing.T) {
	h := HashEssay("hello")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashEssay("hello"))
	assert.NotEqual(t, h, HashEssay("hello "))
}

func TestListRecentExcludesEssayText(t *testing.T) {
	repo := &fakeRepo{}
	gen := &stubGenerator{fb: Analyze(narrativeEssay)}
	svc := NewService(repo, gen, nil)

	_, err := svc.Process(context.Background(), narrativeEssay, ProcessOptions{
		Save:   true,
		UserID: strPtr("user-1"),
	})
	require.NoError(t, err)

	items, err := svc.ListRecent(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].EssayText)

	other, err := svc.ListRecent(context.Background(), "user-2", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}
