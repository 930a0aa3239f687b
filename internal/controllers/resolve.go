package controllers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"identarr/internal/models"
	"identarr/internal/parser"
	"identarr/internal/services/llm"
	"identarr/internal/services/tmdb"
)

// ambiguityThreshold is the similarity a top candidate must reach for the
// deterministic mode to accept it when several candidates remain.
const ambiguityThreshold = 0.8

// maxModelCandidates caps how many candidates per type are shown to the
// completion service.
const maxModelCandidates = 3

var typeIndexRegex = regexp.MustCompile(`(tv|movie)\s*:\s*(\d+)`)

// ResolveController disambiguates movie vs TV vs collection from the
// provider's three parallel result sets.
type ResolveController struct {
	provider  tmdb.Provider
	completer llm.Completer
	logger    *logrus.Logger
}

// NewResolveController creates a new resolve controller. The completer may
// be nil when only the deterministic mode is used.
func NewResolveController(provider tmdb.Provider, completer llm.Completer, logger *logrus.Logger) *ResolveController {
	return &ResolveController{
		provider:  provider,
		completer: completer,
		logger:    logger,
	}
}

// ResolveDeterministic applies the heuristic priority ladder. The selected
// candidate ends up at index 0 of the returned candidate list.
func (c *ResolveController) ResolveDeterministic(ctx context.Context, identity *models.MediaIdentity, name string, movies, tvs, collections []models.SearchCandidate) (*models.ResolvedMedia, error) {
	// 1. Nothing anywhere.
	if len(movies) == 0 && len(tvs) == 0 {
		return &models.ResolvedMedia{Kind: models.MediaKindNone}, nil
	}

	var resolved *models.ResolvedMedia
	switch {
	// 2. Exactly one set non-empty.
	case len(tvs) == 0:
		resolved = &models.ResolvedMedia{Kind: models.MediaKindMovie, Candidates: movies}
	case len(movies) == 0:
		resolved = &models.ResolvedMedia{Kind: models.MediaKindTV, Candidates: tvs}

	// 3. Season/episode presence is a strong TV signal. A season of 1 may
	// be the extractor's default rather than a marker, so it does not
	// count on its own.
	case identity.Episode != nil || (identity.Season != nil && *identity.Season > 1):
		resolved = &models.ResolvedMedia{Kind: models.MediaKindTV, Candidates: tvs}

	// 4. Theatrical marker pushes toward movie.
	case parser.IsTheatrical(name):
		resolved = &models.ResolvedMedia{Kind: models.MediaKindMovie, Candidates: movies, IsTheatrical: true}

	// 5. Title similarity against each set's top candidate; ties go to TV.
	default:
		movieScore := parser.TitleSimilarity(identity.Title, movies[0].DisplayName)
		tvScore := parser.TitleSimilarity(identity.Title, tvs[0].DisplayName)
		c.logger.WithFields(logrus.Fields{
			"title":       identity.Title,
			"movie_score": movieScore,
			"tv_score":    tvScore,
		}).Debug("Type disambiguation by title similarity")
		if movieScore > tvScore {
			resolved = &models.ResolvedMedia{Kind: models.MediaKindMovie, Candidates: movies}
		} else {
			resolved = &models.ResolvedMedia{Kind: models.MediaKindTV, Candidates: tvs}
		}
	}

	candidates, err := c.narrow(identity.Title, resolved.Candidates)
	if err != nil {
		return nil, err
	}
	resolved.Candidates = candidates

	// 6. Collection annotation for movies; failures here only skip the
	// annotation, never the resolve.
	if resolved.Kind == models.MediaKindMovie && len(collections) > 0 {
		c.annotateCollection(ctx, resolved, collections)
	}

	return resolved, nil
}

// narrow settles the within-set selection for the deterministic mode. A
// single candidate stands as-is. With several, a unique near-exact name
// match wins and is promoted; otherwise the top candidate must clear the
// similarity threshold or the result is ambiguous.
func (c *ResolveController) narrow(title string, candidates []models.SearchCandidate) ([]models.SearchCandidate, error) {
	if len(candidates) <= 1 {
		return models.PromoteCandidate(candidates, 0), nil
	}

	names := make([]string, len(candidates))
	for i, cand := range candidates {
		names[i] = cand.DisplayName
	}
	if idx, ok := parser.NarrowByExactMatch(title, names); ok {
		return models.PromoteCandidate(candidates, idx), nil
	}

	if parser.TitleSimilarity(title, candidates[0].DisplayName) >= ambiguityThreshold {
		return models.PromoteCandidate(candidates, 0), nil
	}

	return nil, &models.AmbiguousResultError{
		Title:  title,
		Reason: fmt.Sprintf("%d candidates and no narrowing signal", len(candidates)),
	}
}

// annotateCollection intersects collection members with the movie result
// IDs and records the membership when it is non-empty.
func (c *ResolveController) annotateCollection(ctx context.Context, resolved *models.ResolvedMedia, collections []models.SearchCandidate) {
	detail, err := c.provider.CollectionDetail(ctx, collections[0].ExternalID)
	if err != nil {
		c.logger.WithError(err).Debug("Collection detail fetch failed, skipping annotation")
		return
	}

	memberIDs := make(map[int64]bool, len(detail.Parts))
	for _, part := range detail.Parts {
		memberIDs[part.ID] = true
	}

	var intersection []int64
	for _, cand := range resolved.Candidates {
		if memberIDs[cand.ExternalID] {
			intersection = append(intersection, cand.ExternalID)
		}
	}

	if len(intersection) > 0 {
		resolved.IsCollection = true
		resolved.CollectionMemberIDs = intersection
	}
}

// ResolveWithModel presents the top candidates of each type to the
// completion service and expects a single "type:index" answer. Any parse
// failure, bounds violation or provider error falls back to the heuristic:
// season/episode presence means TV when TV results exist, otherwise the
// larger result set wins with ties favoring TV.
func (c *ResolveController) ResolveWithModel(ctx context.Context, identity *models.MediaIdentity, movies, tvs []models.SearchCandidate) (*models.ResolvedMedia, error) {
	if len(movies) == 0 && len(tvs) == 0 {
		return &models.ResolvedMedia{Kind: models.MediaKindNone}, nil
	}

	if c.completer != nil {
		if resolved, err := c.selectViaModel(ctx, identity, movies, tvs); err == nil {
			return resolved, nil
		} else {
			c.logger.WithError(err).Debug("Model selection failed, using heuristic fallback")
		}
	}

	return c.heuristicFallback(identity, movies, tvs), nil
}

func (c *ResolveController) selectViaModel(ctx context.Context, identity *models.MediaIdentity, movies, tvs []models.SearchCandidate) (*models.ResolvedMedia, error) {
	prompt := buildSelectionPrompt(identity, movies, tvs)
	text, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	m := typeIndexRegex.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return nil, &models.ModelParseError{Step: "type:index answer"}
	}

	idx, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, &models.ModelParseError{Step: "type:index answer", Err: err}
	}
	idx-- // 1-based answer

	switch m[1] {
	case "tv":
		if idx < 0 || idx >= len(tvs) {
			return nil, &models.ModelParseError{Step: "tv index bounds"}
		}
		return &models.ResolvedMedia{Kind: models.MediaKindTV, Candidates: models.PromoteCandidate(tvs, idx)}, nil
	default:
		if idx < 0 || idx >= len(movies) {
			return nil, &models.ModelParseError{Step: "movie index bounds"}
		}
		return &models.ResolvedMedia{Kind: models.MediaKindMovie, Candidates: models.PromoteCandidate(movies, idx)}, nil
	}
}

func (c *ResolveController) heuristicFallback(identity *models.MediaIdentity, movies, tvs []models.SearchCandidate) *models.ResolvedMedia {
	if (identity.Season != nil || identity.Episode != nil) && len(tvs) > 0 {
		return &models.ResolvedMedia{Kind: models.MediaKindTV, Candidates: models.PromoteCandidate(tvs, 0)}
	}
	if len(movies) > len(tvs) {
		return &models.ResolvedMedia{Kind: models.MediaKindMovie, Candidates: models.PromoteCandidate(movies, 0)}
	}
	return &models.ResolvedMedia{Kind: models.MediaKindTV, Candidates: models.PromoteCandidate(tvs, 0)}
}

func buildSelectionPrompt(identity *models.MediaIdentity, movies, tvs []models.SearchCandidate) string {
	var b strings.Builder
	b.WriteString(llm.TypeSelectionPrompt)
	b.WriteString("\n\nName: ")
	b.WriteString(identity.Title)
	b.WriteString("\n\nTV candidates:\n")
	writeCandidates(&b, tvs)
	b.WriteString("\nMovie candidates:\n")
	writeCandidates(&b, movies)
	return b.String()
}

func writeCandidates(b *strings.Builder, candidates []models.SearchCandidate) {
	if len(candidates) == 0 {
		b.WriteString("(none)\n")
		return
	}
	for i, cand := range candidates {
		if i >= maxModelCandidates {
			break
		}
		fmt.Fprintf(b, "%d. %s", i+1, cand.DisplayName)
		if cand.ReleaseYear > 0 {
			fmt.Fprintf(b, " (%d)", cand.ReleaseYear)
		}
		b.WriteString("\n")
	}
}
