package controllers

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"identarr/internal/models"
	"identarr/internal/services/tmdb"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// fakeProvider returns canned candidate sets and details.
type fakeProvider struct {
	movies      []models.SearchCandidate
	tvs         []models.SearchCandidate
	collections []models.SearchCandidate

	movieDetail      *tmdb.MovieDetails
	seasonDetail     *models.SeasonInfo
	collectionDetail *tmdb.CollectionDetails

	searchErr error
	detailErr error

	seasonRequests []int
}

func (f *fakeProvider) SearchMovie(ctx context.Context, query string, year int) ([]models.SearchCandidate, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.movies, nil
}

func (f *fakeProvider) SearchTV(ctx context.Context, query string, year int) ([]models.SearchCandidate, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.tvs, nil
}

func (f *fakeProvider) SearchCollection(ctx context.Context, query string) ([]models.SearchCandidate, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.collections, nil
}

func (f *fakeProvider) MovieDetail(ctx context.Context, id int64) (*tmdb.MovieDetails, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	if f.movieDetail != nil {
		return f.movieDetail, nil
	}
	return &tmdb.MovieDetails{ID: id, Title: "Fake Movie"}, nil
}

func (f *fakeProvider) SeasonDetail(ctx context.Context, tvID int64, season int) (*models.SeasonInfo, error) {
	f.seasonRequests = append(f.seasonRequests, season)
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	if f.seasonDetail != nil {
		return f.seasonDetail, nil
	}
	return &models.SeasonInfo{Number: season}, nil
}

func (f *fakeProvider) CollectionDetail(ctx context.Context, id int64) (*tmdb.CollectionDetails, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	if f.collectionDetail != nil {
		return f.collectionDetail, nil
	}
	return nil, errors.New("no collection detail configured")
}

// fakeCompleter returns a fixed response or error.
type fakeCompleter struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}
