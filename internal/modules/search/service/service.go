package service

import (
	"errors"
	"html"
	"strings"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const tuitionIndex = "tuitions"

var ErrSearchDisabled = errors.New("search is not configured")

type SearchService interface {
	// IndexTuition upserts an active post and removes any other from the index.
	IndexTuition(post *entity.TuitionPost) error
	RemoveTuition(id string) error
	// Reindex upserts active posts and drops any other post from the index.
	Reindex(posts []entity.TuitionPost) error
	GenerateSearchToken(role string) (string, error)
}

type meiliSearchService struct {
	client        meilisearch.ServiceManager
	signingKeyUID string
	signingKey    string
	sanitizer     *bluemonday.Policy
	log           *zap.Logger
}

// NewSearchService returns a disabled service when client is nil.
func NewSearchService(client meilisearch.ServiceManager, log *zap.Logger) SearchService {
	if client == nil {
		return disabledSearch{}
	}

	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
		log:       log,
	}
	s.initIndexes()
	s.initSigningKey()
	return s
}

func (s *meiliSearchService) initSigningKey() {
	resp, err := s.client.GetKeys(&meilisearch.KeysQuery{Limit: 20})
	if err != nil {
		s.log.Warn("list meilisearch keys", zap.Error(err))
		return
	}

	for _, key := range resp.Results {
		if key.Name == "TenantTokenSigner" {
			s.signingKeyUID = key.UID
			s.signingKey = key.Key
			return
		}
	}

	key, err := s.client.CreateKey(&meilisearch.Key{
		Description: "Key to sign tenant tokens",
		Name:        "TenantTokenSigner",
		Actions:     []string{"search"},
		Indexes:     []string{tuitionIndex},
		ExpiresAt:   time.Now().AddDate(100, 0, 0),
	})
	if err != nil {
		s.log.Warn("create meilisearch signing key", zap.Error(err))
		return
	}

	s.signingKeyUID = key.UID
	s.signingKey = key.Key
	s.log.Info("created meilisearch signing key")
}

func (s *meiliSearchService) initIndexes() {
	filterable := []any{"status", "subject", "city", "class_level", "location_mode"}
	if _, err := s.client.Index(tuitionIndex).UpdateFilterableAttributes(&filterable); err != nil {
		s.log.Warn("update tuition filterable attributes", zap.Error(err))
	}

	sortable := []string{"created_at", "budget_min", "budget_max", "views"}
	if _, err := s.client.Index(tuitionIndex).UpdateSortableAttributes(&sortable); err != nil {
		s.log.Warn("update tuition sortable attributes", zap.Error(err))
	}
}

type tuitionDoc struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Subject      string   `json:"subject"`
	ClassLevel   string   `json:"class_level"`
	LocationMode string   `json:"location_mode"`
	City         string   `json:"city"`
	Area         string   `json:"area"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	BudgetMin    float64  `json:"budget_min"`
	BudgetMax    float64  `json:"budget_max"`
	Currency     string   `json:"currency"`
	Status       string   `json:"status"`
	Views        int      `json:"views"`
	CreatedAt    int64    `json:"created_at"`
}

func (s *meiliSearchService) cleanContentForIndex(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	cleanText := html.UnescapeString(s.sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *meiliSearchService) document(post *entity.TuitionPost) tuitionDoc {
	requirements := make([]string, 0, len(post.Requirements))
	for _, r := range post.Requirements {
		requirements = append(requirements, s.cleanContentForIndex(r))
	}
	low, _ := post.BudgetMin.Float64()
	high, _ := post.BudgetMax.Float64()

	return tuitionDoc{
		ID:           post.ID.String(),
		Title:        s.cleanContentForIndex(post.Title),
		Subject:      post.Subject,
		ClassLevel:   post.ClassLevel,
		LocationMode: post.LocationMode,
		City:         post.City,
		Area:         post.Area,
		Description:  s.cleanContentForIndex(post.Description),
		Requirements: requirements,
		BudgetMin:    low,
		BudgetMax:    high,
		Currency:     post.Currency,
		Status:       post.Status,
		Views:        post.Views,
		CreatedAt:    post.CreatedAt.Unix(),
	}
}

func (s *meiliSearchService) IndexTuition(post *entity.TuitionPost) error {
	if post.Status != entity.TuitionActive {
		return s.RemoveTuition(post.ID.String())
	}

	task, err := s.client.Index(tuitionIndex).AddDocuments([]tuitionDoc{s.document(post)}, strPtr("id"))
	if err != nil {
		return err
	}
	s.log.Debug("indexed tuition", zap.String("tuition_id", post.ID.String()), zap.Int64("task", task.TaskUID))
	return nil
}

func (s *meiliSearchService) RemoveTuition(id string) error {
	_, err := s.client.Index(tuitionIndex).DeleteDocument(id)
	return err
}

// Reindex upserts the active posts and deletes the documents of the rest.
func (s *meiliSearchService) Reindex(posts []entity.TuitionPost) error {
	docs := make([]tuitionDoc, 0, len(posts))
	var stale []string
	for i := range posts {
		if posts[i].Status == entity.TuitionActive {
			docs = append(docs, s.document(&posts[i]))
		} else {
			stale = append(stale, posts[i].ID.String())
		}
	}

	if len(docs) > 0 {
		if _, err := s.client.Index(tuitionIndex).AddDocuments(docs, strPtr("id")); err != nil {
			return err
		}
	}
	for _, id := range stale {
		if err := s.RemoveTuition(id); err != nil {
			return err
		}
	}
	return nil
}

func (s *meiliSearchService) GenerateSearchToken(role string) (string, error) {
	if s.signingKeyUID == "" || s.signingKey == "" {
		return "", errors.New("signing key not initialized")
	}

	// Admins may search every indexed document.
	rules := map[string]any{"filter": "status = 'active'"}
	if role == entity.RoleAdmin {
		rules = map[string]any{"filter": nil}
	}

	return s.client.GenerateTenantToken(s.signingKeyUID, map[string]any{tuitionIndex: rules}, &meilisearch.TenantTokenOptions{
		APIKey:    s.signingKey,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
}

func strPtr(s string) *string {
	return &s
}

type disabledSearch struct{}

func (disabledSearch) IndexTuition(*entity.TuitionPost) error { return nil }
func (disabledSearch) RemoveTuition(string) error { return nil }
func (disabledSearch) Reindex([]entity.TuitionPost) error { return nil }
func (disabledSearch) GenerateSearchToken(string) (string, error) {
	return "", ErrSearchDisabled
}
