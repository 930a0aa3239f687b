package controllers

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"identarr/internal/models"
	"identarr/internal/parser"
	"identarr/internal/services/llm"
)

var (
	fencedBlockRegex = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	titleKeyRegex    = regexp.MustCompile(`"?title"?\s*[:=]\s*['"]([^'"]+)['"]`)
	seasonKeyRegex   = regexp.MustCompile(`"?season"?\s*[:=]\s*"?(\d+)"?`)
	episodeKeyRegex  = regexp.MustCompile(`"?episode"?\s*[:=]\s*"?(\d+)"?`)
)

// IdentifyController derives media identities from names, either through
// the deterministic pattern rules or through the completion service with
// the pattern extractor as a safety net.
type IdentifyController struct {
	extractor *parser.Extractor
	completer llm.Completer
	logger    *logrus.Logger
}

// NewIdentifyController creates a new identify controller. The completer
// may be nil, in which case only the pattern path is available.
func NewIdentifyController(extractor *parser.Extractor, completer llm.Completer, logger *logrus.Logger) *IdentifyController {
	return &IdentifyController{
		extractor: extractor,
		completer: completer,
		logger:    logger,
	}
}

// Extract runs the deterministic pattern extractor.
func (c *IdentifyController) Extract(name string, isDirectory bool) (*models.MediaIdentity, error) {
	return c.extractor.Extract(name, isDirectory)
}

// Episode re-extracts just the episode number from a file name.
func (c *IdentifyController) Episode(name string) (int, bool) {
	return c.extractor.Episode(name)
}

// ExtractViaModel asks the completion service to parse the name and
// recovers a JSON object from its unconstrained output. Every failure
// mode, from a provider outage to unparsable text to a missing title,
// falls back to the pattern extractor on the same input; this path never
// surfaces a model error to its caller.
func (c *IdentifyController) ExtractViaModel(ctx context.Context, name string, isDirectory bool) (*models.MediaIdentity, error) {
	if c.completer == nil {
		return c.extractor.Extract(name, isDirectory)
	}

	text, err := c.completer.Complete(ctx, llm.IdentityExtractionPrompt+"\n"+name)
	if err != nil {
		c.logger.WithError(err).WithField("name", name).Warn("Completion call failed, falling back to pattern extraction")
		return c.extractor.Extract(name, isDirectory)
	}

	identity, err := recoverIdentity(text)
	if err != nil {
		c.logger.WithError(err).WithField("name", name).Warn("Model output unusable, falling back to pattern extraction")
		return c.extractor.Extract(name, isDirectory)
	}

	if identity.Season == nil && identity.Episode != nil {
		one := 1
		identity.Season = &one
	}

	c.logger.WithFields(logrus.Fields{
		"name":  name,
		"title": identity.Title,
	}).Debug("Identity extracted via model")

	return identity, nil
}

// recoverIdentity pulls an identity out of unconstrained completion text.
// The recovery steps run in a fixed order and each is attempted only when
// the previous one produced nothing; for text containing several JSON-like
// spans the result depends on this exact ordering, so it must not change.
func recoverIdentity(text string) (*models.MediaIdentity, error) {
	// (a) content inside a fenced code block
	if m := fencedBlockRegex.FindStringSubmatch(text); len(m) > 1 {
		if identity, ok := parseIdentityJSON(m[1]); ok {
			return identity, nil
		}
	}

	// (b) the entire trimmed response as JSON
	if identity, ok := parseIdentityJSON(strings.TrimSpace(text)); ok {
		return identity, nil
	}

	// (c) the widest brace span, first "{" through the last "}", single
	// quotes normalized. Greedy on purpose: text with several objects
	// fails to parse here and falls through to (d).
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			span := strings.ReplaceAll(text[start:end+1], "'", "\"")
			if identity, ok := parseIdentityJSON(span); ok {
				return identity, nil
			}
		}
	}

	// (d) per-key regex extraction as a last resort
	if m := titleKeyRegex.FindStringSubmatch(text); len(m) > 1 && strings.TrimSpace(m[1]) != "" {
		identity := &models.MediaIdentity{Title: strings.TrimSpace(m[1])}
		if sm := seasonKeyRegex.FindStringSubmatch(text); len(sm) > 1 {
			if v, err := strconv.Atoi(sm[1]); err == nil {
				identity.Season = &v
			}
		}
		if em := episodeKeyRegex.FindStringSubmatch(text); len(em) > 1 {
			if v, err := strconv.Atoi(em[1]); err == nil {
				identity.Episode = &v
			}
		}
		return identity, nil
	}

	return nil, &models.ModelParseError{Step: "all recovery steps"}
}

// parseIdentityJSON decodes a candidate JSON object and validates that it
// carries a non-empty title. Season and episode arrive as numbers or
// strings depending on the model's mood, so both are coerced.
func parseIdentityJSON(candidate string) (*models.MediaIdentity, bool) {
	if strings.TrimSpace(candidate) == "" {
		return nil, false
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &raw); err != nil {
		return nil, false
	}

	title, _ := raw["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, false
	}

	identity := &models.MediaIdentity{Title: title}
	if v, ok := coerceInt(raw["season"]); ok {
		identity.Season = &v
	}
	if v, ok := coerceInt(raw["episode"]); ok {
		identity.Episode = &v
	}
	return identity, true
}

func coerceInt(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case string:
		if n, ok := parser.ParseNumeral(v); ok {
			return n, true
		}
	}
	return 0, false
}
