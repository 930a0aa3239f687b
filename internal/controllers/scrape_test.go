package controllers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identarr/internal/models"
	"identarr/internal/parser"
)

func newScrape(provider *fakeProvider, useModel bool) *ScrapeController {
	logger := testLogger()
	identify := NewIdentifyController(parser.NewExtractor(logger), nil, logger)
	resolve := NewResolveController(provider, nil, logger)
	return NewScrapeController(identify, resolve, provider, useModel, logger)
}

func showSeason() *models.SeasonInfo {
	return &models.SeasonInfo{
		Number: 1,
		Episodes: []models.EpisodeInfo{
			{Number: 1, Name: "Pilot"},
			{Number: 2, Name: "Second Steps"},
			{Number: 3, Name: "Third Rail"},
			{Number: 4, Name: "Fourth Wall"},
			{Number: 5, Name: "Fifth Season"},
		},
	}
}

func TestResolveEpisodeFile(t *testing.T) {
	provider := &fakeProvider{
		tvs:          []models.SearchCandidate{{ExternalID: 7, DisplayName: "Severance", Kind: models.MediaKindTV}},
		seasonDetail: showSeason(),
	}
	s := newScrape(provider, false)

	detail, err := s.Resolve(context.Background(), "Severance.S01E02.mkv", false, "")
	require.NoError(t, err)
	assert.Equal(t, models.MediaKindTV, detail.Kind)
	assert.Equal(t, int64(7), detail.ExternalID)
	require.NotNil(t, detail.Episode)
	assert.Equal(t, 2, *detail.Episode)
	assert.Equal(t, "Second Steps", detail.EpisodeTitle)
}

func TestResolveSearchFailureIsolated(t *testing.T) {
	// All three searches fail; the pipeline sees empty sets and reports
	// an ambiguous result rather than a provider failure.
	provider := &fakeProvider{searchErr: assert.AnError}
	s := newScrape(provider, false)

	_, err := s.Resolve(context.Background(), "Severance.S01E02.mkv", false, "")
	require.Error(t, err)
	assert.True(t, models.IsAmbiguousResultError(err))
}

func TestResolveDetailFailureFatal(t *testing.T) {
	provider := &fakeProvider{
		tvs:       []models.SearchCandidate{{ExternalID: 7, DisplayName: "Severance", Kind: models.MediaKindTV}},
		detailErr: assert.AnError,
	}
	s := newScrape(provider, false)

	_, err := s.Resolve(context.Background(), "Severance.S01E02.mkv", false, "")
	require.Error(t, err)
	assert.False(t, models.IsAmbiguousResultError(err))
}

func TestResolveParentFolderFallback(t *testing.T) {
	provider := &fakeProvider{
		tvs:          []models.SearchCandidate{{ExternalID: 7, DisplayName: "Show", Kind: models.MediaKindTV}},
		seasonDetail: showSeason(),
	}
	s := newScrape(provider, false)

	// "Episode 05" matches no file-level title pattern; the parent folder
	// "Show" resolves as a directory and the episode number comes back
	// from the original file name.
	detail, err := s.Resolve(context.Background(), "Episode 05.mkv", false, "/library/Show/Episode 05.mkv")
	require.NoError(t, err)
	assert.Equal(t, "Show", detail.Title)
	require.NotNil(t, detail.Episode)
	assert.Equal(t, 5, *detail.Episode)
	assert.Equal(t, "Fifth Season", detail.EpisodeTitle)
}

func TestResolveParentFallbackKeepsOriginalError(t *testing.T) {
	// Parent resolution fails too (no results at all); the error must be
	// the original extraction error, not the parent's.
	provider := &fakeProvider{}
	s := newScrape(provider, false)

	_, err := s.Resolve(context.Background(), "Episode 05.mkv", false, "/library/Show/Episode 05.mkv")
	require.Error(t, err)
	assert.True(t, models.IsExtractionError(err))
}

func TestResolveNoFallbackWithoutFullPath(t *testing.T) {
	provider := &fakeProvider{}
	s := newScrape(provider, false)

	_, err := s.Resolve(context.Background(), "Episode 05.mkv", false, "")
	require.Error(t, err)
	assert.True(t, models.IsExtractionError(err))
}

func TestResolveDirectoryFetchesRequestedSeason(t *testing.T) {
	provider := &fakeProvider{
		tvs:          []models.SearchCandidate{{ExternalID: 7, DisplayName: "Show", Kind: models.MediaKindTV}},
		seasonDetail: showSeason(),
	}
	s := newScrape(provider, false)

	detail, err := s.Resolve(context.Background(), "Show Season 3", true, "")
	require.NoError(t, err)
	assert.Nil(t, detail.Episode)
	require.NotEmpty(t, provider.seasonRequests)
	assert.Equal(t, 3, provider.seasonRequests[0])
}

func TestResolveIdempotent(t *testing.T) {
	provider := &fakeProvider{
		tvs: []models.SearchCandidate{
			{ExternalID: 7, DisplayName: "Severance", Kind: models.MediaKindTV},
			{ExternalID: 8, DisplayName: "Severance Package", Kind: models.MediaKindTV},
		},
		seasonDetail: showSeason(),
	}
	s := newScrape(provider, false)

	first, err := s.Resolve(context.Background(), "Severance.S01E02.mkv", false, "")
	require.NoError(t, err)
	second, err := s.Resolve(context.Background(), "Severance.S01E02.mkv", false, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	// The provider's candidate slice was not reordered in place.
	assert.Equal(t, int64(7), provider.tvs[0].ExternalID)
}
