package essay

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admitlens/core/internal/pkg/jwt"
	"github.com/admitlens/core/internal/pkg/ratelimit"
)

func newTestRouter(t *testing.T, repo Repository, gen Generator, limiter *ratelimit.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwt.SetSecret("handler-test-secret-0123456789")

	if limiter == nil {
		limiter = ratelimit.New(ratelimit.Options{Limit: 100, Window: time.Minute})
	}
	r := gin.New()
	api := r.Group("/api")
	NewHandler(NewService(repo, gen, nil), limiter).RegisterRoutes(api)
	return r
}

func postJSON(r http.Handler, path string, payload interface{}, headers map[string]string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func bearer(t *testing.T, userID string) map[string]string {
	t.Helper()
	token, err := jwt.Sign(userID, time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestCreateFeedbackRejectsShortEssay(t *testing.T) {
	r := newTestRouter(t, &fakeRepo{}, &stubGenerator{fb: Analyze(narrativeEssay)}, nil)

	w := postJSON(r, "/api/feedback", gin.H{"essayText": "too short"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", errorCode(t, w))
}

func TestCreateFeedbackAnonymous(t *testing.T) {
	repo := &fakeRepo{}
	r := newTestRouter(t, repo, &stubGenerator{fb: Analyze(narrativeEssay)}, nil)

	w := postJSON(r, "/api/feedback", gin.H{
		"essayText": narrativeEssay,
		"options":   gin.H{"save": true},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	var body struct {
		Feedback  *feedbackBody `json:"feedback"`
		SessionID string        `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Feedback)
	assert.Len(t, body.Feedback.Summary, 4)

	// save is ignored without a signed-in user.
	assert.Empty(t, body.SessionID)
	assert.Empty(t, repo.docs)
}

type feedbackBody struct {
	Summary []string `json:"summary"`
	Buckets struct {
		Clarity struct {
			Score int `json:"score"`
		} `json:"Clarity"`
	} `json:"buckets"`
}

func TestCreateFeedbackAuthenticatedSave(t *testing.T) {
	repo := &fakeRepo{}
	r := newTestRouter(t, repo, &stubGenerator{fb: Analyze(narrativeEssay)}, nil)

	w := postJSON(r, "/api/feedback", gin.H{
		"essayText": narrativeEssay,
		"options":   gin.H{"save": true},
	}, bearer(t, "user-1"))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.SessionID)
	require.Len(t, repo.docs, 1)
	require.NotNil(t, repo.docs[0].UserID)
	assert.Equal(t, "user-1", *repo.docs[0].UserID)
}

func TestSaveSessionRequiresAuth(t *testing.T) {
	repo := &fakeRepo{}
	r := newTestRouter(t, repo, &stubGenerator{fb: Analyze(narrativeEssay)}, nil)

	w := postJSON(r, "/api/sessions", gin.H{"essayText": narrativeEssay}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
	assert.Empty(t, repo.docs)
}

func TestSaveSessionPersists(t *testing.T) {
	repo := &fakeRepo{}
	r := newTestRouter(t, repo, &stubGenerator{fb: Analyze(narrativeEssay)}, nil)

	w := postJSON(r, "/api/sessions", gin.H{"essayText": narrativeEssay}, bearer(t, "user-7"))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		SessionID string        `json:"sessionId"`
		Feedback  *feedbackBody `json:"feedback"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "session-1", body.SessionID)
	require.NotNil(t, body.Feedback)
	require.Len(t, repo.docs, 1)
	require.NotNil(t, repo.docs[0].UserID)
	assert.Equal(t, "user-7", *repo.docs[0].UserID)
}

func TestListSessionsRequiresAuth(t *testing.T) {
	r := newTestRouter(t, &fakeRepo{}, &stubGenerator{fb: Analyze(narrativeEssay)}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
}

func TestListSessionsReturnsOwnHistory(t *testing.T) {
	repo := &fakeRepo{}
	r := newTestRouter(t, repo, &stubGenerator{fb: Analyze(narrativeEssay)}, nil)

	w := postJSON(r, "/api/sessions", gin.H{"essayText": narrativeEssay}, bearer(t, "user-1"))
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	for k, v := range bearer(t, "user-1") {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []struct {
			EssayHash string `json:"essayHash"`
			EssayText string `json:"essayText"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, HashEssay(narrativeEssay), body.Items[0].EssayHash)
	assert.Empty(t, body.Items[0].EssayText)
}

func TestFeedbackRateLimited(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Options{Limit: 2, Window: time.Minute})
	r := newTestRouter(t, &fakeRepo{}, &stubGenerator{fb: Analyze(narrativeEssay)}, limiter)

	payload := gin.H{"essayText": narrativeEssay}
	for i := 0; i < 2; i++ {
		w := postJSON(r, "/api/feedback", payload, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := postJSON(r, "/api/feedback", payload, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, w))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimitBucketsPerForwardedAddress(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Options{Limit: 1, Window: time.Minute})
	r := newTestRouter(t, &fakeRepo{}, &stubGenerator{fb: Analyze(narrativeEssay)}, limiter)

	payload := gin.H{"essayText": narrativeEssay}
	first := postJSON(r, "/api/feedback", payload, map[string]string{"X-Forwarded-For": "10.0.0.1"})
	require.Equal(t, http.StatusOK, first.Code)

	other := postJSON(r, "/api/feedback", payload, map[string]string{"X-Forwarded-For": "10.0.0.2"})
	assert.Equal(t, http.StatusOK, other.Code)

	repeat := postJSON(r, "/api/feedback", payload, map[string]string{"X-Forwarded-For": "10.0.0.1"})
	assert.Equal(t, http.StatusTooManyRequests, repeat.Code)
}

func TestCreateFeedbackRejectsMalformedJSON(t *testing.T) {
	r := newTestRouter(t, &fakeRepo{}, &stubGenerator{fb: Analyze(narrativeEssay)}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/feedback", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", errorCode(t, w))
}
