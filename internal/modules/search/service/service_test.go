package service

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// meiliRecorder accepts every task and records the calls made to it.
type meiliRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (m *meiliRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.calls = append(m.calls, r.Method+" "+r.URL.Path)
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"taskUid":1,"indexUid":"tuitions","status":"enqueued","type":"documentAdditionOrUpdate","enqueuedAt":"2026-01-01T00:00:00Z"}`))
}

func newMeiliService(t *testing.T) (*meiliSearchService, *meiliRecorder) {
	t.Helper()
	rec := &meiliRecorder{}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	return &meiliSearchService{
		client:    meilisearch.New(srv.URL, meilisearch.WithAPIKey("test")),
		sanitizer: bluemonday.StrictPolicy(),
		log:       zap.NewNop(),
	}, rec
}

func post(status string) entity.TuitionPost {
	return entity.TuitionPost{
		ID:        uuid.New(),
		Title:     "Algebra",
		Subject:   "Mathematics",
		Status:    status,
		CreatedAt: time.Now(),
	}
}

func TestReindex_DropsStaleDocuments(t *testing.T) {
	svc, rec := newMeiliService(t)
	active := post(entity.TuitionActive)
	ongoing := post(entity.TuitionOngoing)
	completed := post(entity.TuitionCompleted)

	require.NoError(t, svc.Reindex([]entity.TuitionPost{active, ongoing, completed}))

	assert.Equal(t, []string{
		"POST /indexes/tuitions/documents",
		"DELETE /indexes/tuitions/documents/" + ongoing.ID.String(),
		"DELETE /indexes/tuitions/documents/" + completed.ID.String(),
	}, rec.calls)
}

func TestIndexTuition_RemovesInactive(t *testing.T) {
	svc, rec := newMeiliService(t)
	ongoing := post(entity.TuitionOngoing)

	require.NoError(t, svc.IndexTuition(&ongoing))

	assert.Equal(t, []string{"DELETE /indexes/tuitions/documents/" + ongoing.ID.String()}, rec.calls)
}

func TestDisabledSearch(t *testing.T) {
	svc := NewSearchService(nil, zap.NewNop())
	p := post(entity.TuitionActive)

	assert.NoError(t, svc.IndexTuition(&p))
	assert.NoError(t, svc.Reindex([]entity.TuitionPost{p}))
	_, err := svc.GenerateSearchToken(entity.RoleTutor)
	assert.ErrorIs(t, err, ErrSearchDisabled)
}
