package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/scrape"
	"github.com/confecoes-lanca/prospector/internal/similarity"
	"github.com/confecoes-lanca/prospector/internal/store"
	"github.com/confecoes-lanca/prospector/pkg/anthropic"
	"github.com/confecoes-lanca/prospector/pkg/tavily"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CountReferenceEmbeddings(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) ReplaceReferenceEmbeddings(ctx context.Context, rows []model.ReferenceEmbedding) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *mockStore) NearestReferenceClients(ctx context.Context, vec []float32, n int) ([]similarity.Neighbor, error) {
	args := m.Called(ctx, vec, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]similarity.Neighbor), args.Error(1)
}

func (m *mockStore) SaveProspect(ctx context.Context, p *model.Prospect) (*store.SaveOutcome, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.SaveOutcome), args.Error(1)
}

func (m *mockStore) GetProspect(ctx context.Context, id string) (*model.Prospect, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Prospect), args.Error(1)
}

func (m *mockStore) ListProspects(ctx context.Context, filter store.ProspectFilter) ([]model.Prospect, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Prospect), args.Error(1)
}

func (m *mockStore) UpdateProspectStatus(ctx context.Context, id string, status model.ProspectStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockStore) CityProspectCount(ctx context.Context, city string) (int, error) {
	args := m.Called(ctx, city)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) DeleteCityProspects(ctx context.Context, city string) (int64, error) {
	args := m.Called(ctx, city)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) SuppressDomain(ctx context.Context, domain, reason string) error {
	args := m.Called(ctx, domain, reason)
	return args.Error(0)
}

func (m *mockStore) SuppressedDomains(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) SaveCheckpoint(ctx context.Context, cp *model.RunCheckpoint) error {
	args := m.Called(ctx, cp)
	return args.Error(0)
}

func (m *mockStore) GetCheckpoint(ctx context.Context, id string) (*model.RunCheckpoint, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RunCheckpoint), args.Error(1)
}

func (m *mockStore) DeleteCheckpoint(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockStore) LogEmail(ctx context.Context, entry model.EmailLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockStore) EmailLogs(ctx context.Context, prospectID string) ([]model.EmailLog, error) {
	args := m.Called(ctx, prospectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EmailLog), args.Error(1)
}

func (m *mockStore) Summary(ctx context.Context) (*model.AnalyticsSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalyticsSummary), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query string, opts ...tavily.SearchOption) (*tavily.SearchResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tavily.SearchResponse), args.Error(1)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Scrape(ctx context.Context, targetURL string) (*scrape.Result, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scrape.Result), args.Error(1)
}

func (m *mockExtractor) ScrapeAll(ctx context.Context, urls []string, maxConcurrent int) []model.ExtractedContent {
	args := m.Called(ctx, urls, maxConcurrent)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.ExtractedContent)
}

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// stubMatcher returns a fixed similarity per URL-independent content lookup.
type stubMatcher struct {
	matches []similarity.Match
	err     error
}

func (s *stubMatcher) FindSimilar(_ context.Context, _ string, _ int) ([]similarity.Match, error) {
	return s.matches, s.err
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}
