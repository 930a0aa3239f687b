package models

// MediaIdentity is the structured identity derived from a file or folder
// name: what the thing is called and, for series content, where it sits.
type MediaIdentity struct {
	Title   string
	Year    int  // 0 when no year was found
	Season  *int // nil only before season defaulting has run
	Episode *int // nil for directories and season packs
}

// SearchCandidate is a single search hit from the metadata provider.
type SearchCandidate struct {
	ExternalID  int64
	DisplayName string
	ReleaseYear int // 0 when the provider gave no date
	Kind        MediaKind
}

// ResolvedMedia is the outcome of type disambiguation: a kind plus the
// candidate list with the selected candidate already promoted to index 0.
type ResolvedMedia struct {
	Kind                MediaKind
	Candidates          []SearchCandidate
	IsTheatrical        bool
	IsCollection        bool
	CollectionMemberIDs []int64
}

// Selected returns the promoted candidate, or nil if there is none.
func (r *ResolvedMedia) Selected() *SearchCandidate {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	return &r.Candidates[0]
}

// EpisodeInfo is one entry of a season's episode list.
type EpisodeInfo struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// SeasonInfo carries the fetched season detail consumed during episode
// title lookup.
type SeasonInfo struct {
	Number   int           `json:"number"`
	Name     string        `json:"name"`
	Episodes []EpisodeInfo `json:"episodes"`
}

// DetailedMedia is the final product of a resolve: identity confirmed
// against the provider, with season/episode detail filled in where known.
type DetailedMedia struct {
	Kind         MediaKind   `json:"kind"`
	ExternalID   int64       `json:"external_id"`
	Title        string      `json:"title"`
	Year         int         `json:"year,omitempty"`
	Season       *SeasonInfo `json:"season,omitempty"`
	Episode      *int        `json:"episode,omitempty"`
	EpisodeTitle string      `json:"episode_title,omitempty"`
	IsTheatrical bool        `json:"is_theatrical,omitempty"`
	IsCollection bool        `json:"is_collection,omitempty"`
}

// PromoteCandidate returns a new candidate slice with the candidate at idx
// moved to the front; the remaining candidates keep their relative order.
// The input slice is never mutated.
func PromoteCandidate(candidates []SearchCandidate, idx int) []SearchCandidate {
	if idx <= 0 || idx >= len(candidates) {
		out := make([]SearchCandidate, len(candidates))
		copy(out, candidates)
		return out
	}
	out := make([]SearchCandidate, 0, len(candidates))
	out = append(out, candidates[idx])
	out = append(out, candidates[:idx]...)
	out = append(out, candidates[idx+1:]...)
	return out
}
