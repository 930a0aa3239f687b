package controllers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identarr/internal/models"
	"identarr/internal/services/tmdb"
)

func identityWithEpisode(title string, episode int) *models.MediaIdentity {
	return &models.MediaIdentity{Title: title, Episode: &episode}
}

func TestResolveDeterministicNoResults(t *testing.T) {
	c := NewResolveController(&fakeProvider{}, nil, testLogger())

	resolved, err := c.ResolveDeterministic(context.Background(), &models.MediaIdentity{Title: "Nothing"}, "Nothing", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MediaKindNone, resolved.Kind)
}

func TestResolveDeterministicSingleSet(t *testing.T) {
	c := NewResolveController(&fakeProvider{}, nil, testLogger())
	movies := []models.SearchCandidate{{ExternalID: 1, DisplayName: "Solo", Kind: models.MediaKindMovie}}

	resolved, err := c.ResolveDeterministic(context.Background(), &models.MediaIdentity{Title: "Solo"}, "Solo", movies, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MediaKindMovie, resolved.Kind)
	assert.Equal(t, int64(1), resolved.Selected().ExternalID)
}

func TestResolveDeterministicEpisodeSignalPicksTV(t *testing.T) {
	c := NewResolveController(&fakeProvider{}, nil, testLogger())
	tvs := []models.SearchCandidate{{ExternalID: 10, DisplayName: "Show A", Kind: models.MediaKindTV}}
	movies := []models.SearchCandidate{{ExternalID: 20, DisplayName: "Show A Movie", Kind: models.MediaKindMovie}}

	resolved, err := c.ResolveDeterministic(context.Background(), identityWithEpisode("Show A", 3), "Show A - 03", movies, tvs, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MediaKindTV, resolved.Kind)
	assert.Equal(t, int64(10), resolved.Selected().ExternalID)
}

func TestResolveDeterministicTheatricalMarker(t *testing.T) {
	c := NewResolveController(&fakeProvider{}, nil, testLogger())
	tvs := []models.SearchCandidate{{ExternalID: 10, DisplayName: "Demon Show", Kind: models.MediaKindTV}}
	movies := []models.SearchCandidate{{ExternalID: 20, DisplayName: "Demon Show", Kind: models.MediaKindMovie}}

	resolved, err := c.ResolveDeterministic(context.Background(), &models.MediaIdentity{Title: "Demon Show"}, "Demon Show 剧场版", movies, tvs, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MediaKindMovie, resolved.Kind)
	assert.True(t, resolved.IsTheatrical)
}

func TestResolveDeterministicSimilarityTieGoesToTV(t *testing.T) {
	c := NewResolveController(&fakeProvider{}, nil, testLogger())
	tvs := []models.SearchCandidate{{ExternalID: 10, DisplayName: "Fargo", Kind: models.MediaKindTV}}
	movies := []models.SearchCandidate{{ExternalID: 20, DisplayName: "Fargo", Kind: models.MediaKindMovie}}

	resolved, err := c.ResolveDeterministic(context.Background(), &models.MediaIdentity{Title: "Fargo"}, "Fargo", movies, tvs, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MediaKindTV, resolved.Kind)
}

func TestResolveDeterministicAmbiguous(t *testing.T) {
	c := NewResolveController(&fakeProvider{}, nil, testLogger())
	movies := []models.SearchCandidate{
		{ExternalID: 1, DisplayName: "Something Else Entirely", Kind: models.MediaKindMovie},
		{ExternalID: 2, DisplayName: "Another Unrelated Thing", Kind: models.MediaKindMovie},
	}

	_, err := c.ResolveDeterministic(context.Background(), &models.MediaIdentity{Title: "zzz"}, "zzz", movies, nil, nil)
	require.Error(t, err)
	assert.True(t, models.IsAmbiguousResultError(err))
}

func TestResolveDeterministicNarrowsByExactMatch(t *testing.T) {
	c := NewResolveController(&fakeProvider{}, nil, testLogger())
	movies := []models.SearchCandidate{
		{ExternalID: 1, DisplayName: "The Matrix Reloaded", Kind: models.MediaKindMovie},
		{ExternalID: 2, DisplayName: "The Matrix", Kind: models.MediaKindMovie},
	}

	resolved, err := c.ResolveDeterministic(context.Background(), &models.MediaIdentity{Title: "The Matrix"}, "The Matrix", movies, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resolved.Selected().ExternalID)
	// Remaining candidates keep their relative order after promotion.
	require.Len(t, resolved.Candidates, 2)
	assert.Equal(t, int64(1), resolved.Candidates[1].ExternalID)
}

func TestResolveDeterministicCollectionAnnotation(t *testing.T) {
	provider := &fakeProvider{
		collectionDetail: &tmdb.CollectionDetails{
			ID: 99,
			Parts: []struct {
				ID    int64  `json:"id"`
				Title string `json:"title"`
			}{{ID: 20, Title: "Part One"}, {ID: 999, Title: "Part Elsewhere"}},
		},
	}
	c := NewResolveController(provider, nil, testLogger())
	movies := []models.SearchCandidate{{ExternalID: 20, DisplayName: "Part One", Kind: models.MediaKindMovie}}
	collections := []models.SearchCandidate{{ExternalID: 99, DisplayName: "The Parts Collection", Kind: models.MediaKindCollection}}

	resolved, err := c.ResolveDeterministic(context.Background(), &models.MediaIdentity{Title: "Part One"}, "Part One", movies, nil, collections)
	require.NoError(t, err)
	assert.True(t, resolved.IsCollection)
	assert.Equal(t, []int64{20}, resolved.CollectionMemberIDs)
}

func TestResolveDeterministicCollectionFetchFailureNonFatal(t *testing.T) {
	provider := &fakeProvider{detailErr: errors.New("boom")}
	c := NewResolveController(provider, nil, testLogger())
	movies := []models.SearchCandidate{{ExternalID: 20, DisplayName: "Part One", Kind: models.MediaKindMovie}}
	collections := []models.SearchCandidate{{ExternalID: 99, DisplayName: "The Parts Collection", Kind: models.MediaKindCollection}}

	resolved, err := c.ResolveDeterministic(context.Background(), &models.MediaIdentity{Title: "Part One"}, "Part One", movies, nil, collections)
	require.NoError(t, err)
	assert.False(t, resolved.IsCollection)
}

func TestResolveWithModelAnswer(t *testing.T) {
	completer := &fakeCompleter{response: "tv:2"}
	c := NewResolveController(&fakeProvider{}, completer, testLogger())
	tvs := []models.SearchCandidate{
		{ExternalID: 1, DisplayName: "Show", Kind: models.MediaKindTV},
		{ExternalID: 2, DisplayName: "Show Returns", Kind: models.MediaKindTV},
	}

	resolved, err := c.ResolveWithModel(context.Background(), &models.MediaIdentity{Title: "Show"}, nil, tvs)
	require.NoError(t, err)
	assert.Equal(t, models.MediaKindTV, resolved.Kind)
	assert.Equal(t, int64(2), resolved.Selected().ExternalID)
}

func TestResolveWithModelBoundsViolationFallsBack(t *testing.T) {
	completer := &fakeCompleter{response: "movie:7"}
	c := NewResolveController(&fakeProvider{}, completer, testLogger())
	movies := []models.SearchCandidate{{ExternalID: 1, DisplayName: "Film", Kind: models.MediaKindMovie}}
	tvs := []models.SearchCandidate{{ExternalID: 2, DisplayName: "Show", Kind: models.MediaKindTV}}

	resolved, err := c.ResolveWithModel(context.Background(), identityWithEpisode("Show", 4), movies, tvs)
	require.NoError(t, err)
	// Episode presence with TV results wins in the fallback.
	assert.Equal(t, models.MediaKindTV, resolved.Kind)
}

func TestResolveWithModelGarbageFallsBackToLargerSet(t *testing.T) {
	completer := &fakeCompleter{response: "I would rather discuss the weather."}
	c := NewResolveController(&fakeProvider{}, completer, testLogger())
	movies := []models.SearchCandidate{
		{ExternalID: 1, DisplayName: "Film", Kind: models.MediaKindMovie},
		{ExternalID: 2, DisplayName: "Film II", Kind: models.MediaKindMovie},
	}
	tvs := []models.SearchCandidate{{ExternalID: 3, DisplayName: "Show", Kind: models.MediaKindTV}}

	resolved, err := c.ResolveWithModel(context.Background(), &models.MediaIdentity{Title: "Film"}, movies, tvs)
	require.NoError(t, err)
	assert.Equal(t, models.MediaKindMovie, resolved.Kind)
}

func TestPromoteCandidateIsPure(t *testing.T) {
	original := []models.SearchCandidate{{ExternalID: 1}, {ExternalID: 2}, {ExternalID: 3}}
	promoted := models.PromoteCandidate(original, 2)

	assert.Equal(t, int64(3), promoted[0].ExternalID)
	assert.Equal(t, int64(1), promoted[1].ExternalID)
	assert.Equal(t, int64(2), promoted[2].ExternalID)
	// Input untouched.
	assert.Equal(t, int64(1), original[0].ExternalID)
	assert.Equal(t, int64(3), original[2].ExternalID)
}
