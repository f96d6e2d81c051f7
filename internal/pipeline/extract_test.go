package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/pkg/anthropic"
)

func TestCleanJSONArray(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `[{"name":"x"}]`, `[{"name":"x"}]`},
		{"fenced", "```json\n[{\"name\":\"x\"}]\n```", `[{"name":"x"}]`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"surrounding prose", `Here are the brands: [{"name":"x"}] as requested.`, `[{"name":"x"}]`},
		{"no array", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSONArray(tt.in))
		})
	}
}

func newExtractPipeline(ai anthropic.Client) *Pipeline {
	return New(DefaultConfig(), &mockStore{}, &mockSearcher{}, &mockExtractor{}, &stubMatcher{}, nil, ai)
}

func extractRun() *Run {
	run := NewRun("r1", "london", "")
	run.Country, run.CountryCode = "United Kingdom", "GB"
	return run
}

func TestSelectCandidatesMapsFields(t *testing.T) {
	ai := &mockAnthropic{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`[{
			"name": "Bond Tailors",
			"url": "https://bondtailors.com",
			"storeCount": 3,
			"avgPriceEur": 890,
			"woolPercentage": "100% wool",
			"madeToMeasure": true,
			"brandStyle": "classic",
			"businessModel": "retail",
			"detailedDescription": "Alfaiataria clássica.",
			"storeLocations": ["Mayfair"],
			"whySelected": "Perfil boutique premium.",
			"country": "United Kingdom",
			"locationQuality": "standard",
			"fitScore": 88
		}]`), nil)

	p := newExtractPipeline(ai)
	contents := []model.ExtractedContent{{URL: "https://bondtailors.com", Content: "bespoke suits"}}

	got, err := p.selectCandidates(context.Background(), contents, extractRun())
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, "Bond Tailors", c.Name)
	assert.Equal(t, "london", c.City)
	assert.Equal(t, "GB", c.CountryCode)
	assert.Equal(t, 3, c.StoreCount)
	assert.Equal(t, 890.0, c.AvgPriceEUR)
	assert.Equal(t, "100% wool", c.WoolPercentage)
	require.NotNil(t, c.MadeToMeasure)
	assert.True(t, *c.MadeToMeasure)
	assert.Equal(t, model.LocationStandard, c.LocationQuality)
	assert.Equal(t, 88, c.FitScore)
	assert.Equal(t, "Perfil boutique premium.", c.Overview)
}

func TestSelectCandidatesOmittedMTMStaysUnknown(t *testing.T) {
	ai := &mockAnthropic{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`[{"name":"Bond Tailors","url":"https://bondtailors.com","storeCount":1}]`), nil)

	p := newExtractPipeline(ai)
	got, err := p.selectCandidates(context.Background(),
		[]model.ExtractedContent{{URL: "https://bondtailors.com", Content: "x"}}, extractRun())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].MadeToMeasure)
}

func TestSelectCandidatesEntityDeduplication(t *testing.T) {
	ai := &mockAnthropic{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`[
			{"name":"Bond Tailors","url":"https://bondtailors.com","storeCount":1},
			{"name":"Bond Tailors London","url":"https://bondtailors.co.uk","storeCount":1},
			{"name":"Other","url":"https://bondtailors.com/shop","storeCount":1},
			{"name":"Sartoria","url":"https://sartoria.it","storeCount":2}
		]`), nil)

	p := newExtractPipeline(ai)
	got, err := p.selectCandidates(context.Background(),
		[]model.ExtractedContent{{URL: "https://bondtailors.com", Content: "x"}}, extractRun())
	require.NoError(t, err)
	// Name variant and same-domain entries collapse into the first.
	require.Len(t, got, 2)
	assert.Equal(t, "Bond Tailors", got[0].Name)
	assert.Equal(t, "Sartoria", got[1].Name)
}

func TestSelectCandidatesPremiumStreetOverride(t *testing.T) {
	ai := &mockAnthropic{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`[{"name":"Bond Tailors","url":"https://bondtailors.com","storeCount":1,"locationQuality":"standard"}]`), nil)

	p := newExtractPipeline(ai)
	contents := []model.ExtractedContent{{
		URL:     "https://bondtailors.com",
		Content: "Visit our flagship store on New Bond Street for bespoke suits.",
	}}

	got, err := p.selectCandidates(context.Background(), contents, extractRun())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.LocationPremium, got[0].LocationQuality)
	assert.Equal(t, 10, got[0].LocationScore)
}

func TestSelectCandidatesPriceFallbackFromContent(t *testing.T) {
	ai := &mockAnthropic{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`[{"name":"Bond Tailors","url":"https://bondtailors.com","storeCount":1,"avgPriceEur":0}]`), nil)

	p := newExtractPipeline(ai)
	contents := []model.ExtractedContent{{
		URL:     "https://bondtailors.com",
		Content: "Suits from €850",
	}}

	got, err := p.selectCandidates(context.Background(), contents, extractRun())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 850.0, got[0].AvgPriceEUR)
}

func TestSelectCandidatesAPIError(t *testing.T) {
	ai := &mockAnthropic{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, eris.New("overloaded"))

	p := newExtractPipeline(ai)
	_, err := p.selectCandidates(context.Background(),
		[]model.ExtractedContent{{URL: "https://x.com", Content: "x"}}, extractRun())
	require.Error(t, err)
}

func TestSelectCandidatesEmptyShortlist(t *testing.T) {
	ai := &mockAnthropic{}
	p := newExtractPipeline(ai)
	got, err := p.selectCandidates(context.Background(), nil, extractRun())
	require.NoError(t, err)
	assert.Empty(t, got)
	ai.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestBuildExtractionPromptTruncatesContent(t *testing.T) {
	long := make([]byte, candidateContentLimit+500)
	for i := range long {
		long[i] = 'a'
	}
	prompt := buildExtractionPrompt([]model.ExtractedContent{
		{URL: "https://x.com", Content: string(long)},
	}, extractRun(), 20)

	assert.Less(t, len(prompt), candidateContentLimit+8000)
	assert.Contains(t, prompt, "CANDIDATE 1")
	assert.Contains(t, prompt, "london")
}
