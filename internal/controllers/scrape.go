package controllers

import (
	"context"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"identarr/internal/models"
	"identarr/internal/services/tmdb"
)

// ScrapeController is the retrieval orchestrator: it turns a name into a
// DetailedMedia by composing extraction, concurrent provider searches,
// type resolution and detail fetches.
type ScrapeController struct {
	identify *IdentifyController
	resolve  *ResolveController
	provider tmdb.Provider
	useModel bool
	logger   *logrus.Logger
}

// NewScrapeController creates a new scrape controller. useModel selects
// the natural-language pipeline for extraction and type selection.
func NewScrapeController(identify *IdentifyController, resolve *ResolveController, provider tmdb.Provider, useModel bool, logger *logrus.Logger) *ScrapeController {
	return &ScrapeController{
		identify: identify,
		resolve:  resolve,
		provider: provider,
		useModel: useModel,
		logger:   logger,
	}
}

// Resolve runs the full pipeline for a name. When the file-level attempt
// fails and a full path is available, the immediate parent directory name
// is tried once as a directory; the episode number from the original file
// name is then overlaid onto the parent-derived result. The fallback never
// recurses further, and when it fails the original error is what the
// caller sees.
func (s *ScrapeController) Resolve(ctx context.Context, name string, isDirectory bool, fullPath string) (*models.DetailedMedia, error) {
	detail, err := s.resolveOnce(ctx, name, isDirectory)
	if err == nil {
		return detail, nil
	}

	if isDirectory || fullPath == "" {
		return nil, err
	}

	parent := filepath.Base(filepath.Dir(fullPath))
	if parent == "" || parent == "." || parent == string(filepath.Separator) {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"name":   name,
		"parent": parent,
	}).Info("File-level resolve failed, trying parent folder")

	parentDetail, parentErr := s.resolveOnce(ctx, parent, true)
	if parentErr != nil {
		s.logger.WithError(parentErr).Debug("Parent folder resolve failed, keeping original error")
		return nil, err
	}

	// The parent result is only useful if the original file name still
	// tells us which episode this is.
	episode, ok := s.identify.Episode(name)
	if !ok {
		return nil, err
	}
	parentDetail.Episode = &episode
	parentDetail.EpisodeTitle = episodeTitle(parentDetail.Season, episode)

	return parentDetail, nil
}

// resolveOnce is one full pass of the pipeline without fallback.
func (s *ScrapeController) resolveOnce(ctx context.Context, name string, isDirectory bool) (*models.DetailedMedia, error) {
	identity, err := s.extractIdentity(ctx, name, isDirectory)
	if err != nil {
		return nil, err
	}

	movies, tvs, collections := s.searchAll(ctx, identity)

	var resolved *models.ResolvedMedia
	if s.useModel {
		resolved, err = s.resolve.ResolveWithModel(ctx, identity, movies, tvs)
	} else {
		resolved, err = s.resolve.ResolveDeterministic(ctx, identity, name, movies, tvs, collections)
	}
	if err != nil {
		return nil, err
	}

	selected := resolved.Selected()
	if resolved.Kind == models.MediaKindNone || selected == nil {
		return nil, &models.AmbiguousResultError{Title: identity.Title, Reason: "no candidates"}
	}

	return s.fetchDetail(ctx, identity, resolved, selected, isDirectory)
}

func (s *ScrapeController) extractIdentity(ctx context.Context, name string, isDirectory bool) (*models.MediaIdentity, error) {
	if s.useModel {
		return s.identify.ExtractViaModel(ctx, name, isDirectory)
	}
	return s.identify.Extract(name, isDirectory)
}

// searchAll queries the three candidate sets concurrently. A failed query
// is logged and degraded to an empty result for that set only.
func (s *ScrapeController) searchAll(ctx context.Context, identity *models.MediaIdentity) (movies, tvs, collections []models.SearchCandidate) {
	var g errgroup.Group

	g.Go(func() error {
		result, err := s.provider.SearchMovie(ctx, identity.Title, identity.Year)
		if err != nil {
			s.logger.WithError(err).Warn("Movie search failed, treating as empty")
			return nil
		}
		movies = result
		return nil
	})
	g.Go(func() error {
		result, err := s.provider.SearchTV(ctx, identity.Title, identity.Year)
		if err != nil {
			s.logger.WithError(err).Warn("TV search failed, treating as empty")
			return nil
		}
		tvs = result
		return nil
	})
	g.Go(func() error {
		result, err := s.provider.SearchCollection(ctx, identity.Title)
		if err != nil {
			s.logger.WithError(err).Warn("Collection search failed, treating as empty")
			return nil
		}
		collections = result
		return nil
	})

	_ = g.Wait()
	return movies, tvs, collections
}

// fetchDetail completes the resolve by fetching detail for the selected
// candidate. Provider failures at this stage are fatal for the attempt.
func (s *ScrapeController) fetchDetail(ctx context.Context, identity *models.MediaIdentity, resolved *models.ResolvedMedia, selected *models.SearchCandidate, isDirectory bool) (*models.DetailedMedia, error) {
	detail := &models.DetailedMedia{
		Kind:         resolved.Kind,
		ExternalID:   selected.ExternalID,
		Title:        selected.DisplayName,
		Year:         selected.ReleaseYear,
		IsTheatrical: resolved.IsTheatrical,
		IsCollection: resolved.IsCollection,
	}

	switch resolved.Kind {
	case models.MediaKindTV:
		seasonNumber := 1
		if identity.Season != nil {
			seasonNumber = *identity.Season
		}
		season, err := s.provider.SeasonDetail(ctx, selected.ExternalID, seasonNumber)
		if err != nil {
			return nil, err
		}
		detail.Season = season

		if !isDirectory && identity.Episode != nil {
			detail.Episode = identity.Episode
			detail.EpisodeTitle = episodeTitle(season, *identity.Episode)
		}

	case models.MediaKindMovie:
		movie, err := s.provider.MovieDetail(ctx, selected.ExternalID)
		if err != nil {
			return nil, err
		}
		detail.Title = movie.Title
	}

	return detail, nil
}

// episodeTitle looks up an episode name by converting the 1-based episode
// number to a 0-based index into the season's episode list. Out of range
// or a missing list leaves the title unset.
func episodeTitle(season *models.SeasonInfo, episode int) string {
	if season == nil {
		return ""
	}
	idx := episode - 1
	if idx < 0 || idx >= len(season.Episodes) {
		return ""
	}
	return season.Episodes[idx].Name
}
