package controllers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identarr/internal/parser"
)

func newIdentify(completer *fakeCompleter) *IdentifyController {
	logger := testLogger()
	var c *IdentifyController
	if completer != nil {
		c = NewIdentifyController(parser.NewExtractor(logger), completer, logger)
	} else {
		c = NewIdentifyController(parser.NewExtractor(logger), nil, logger)
	}
	return c
}

func TestExtractViaModelFencedBlock(t *testing.T) {
	completer := &fakeCompleter{response: "Sure, here you go:\n```json\n{\"title\": \"Dark\", \"season\": 2, \"episode\": 5}\n```\nHope that helps!"}
	c := newIdentify(completer)

	identity, err := c.ExtractViaModel(context.Background(), "Dark.S02E05.mkv", false)
	require.NoError(t, err)
	assert.Equal(t, "Dark", identity.Title)
	require.NotNil(t, identity.Season)
	assert.Equal(t, 2, *identity.Season)
	require.NotNil(t, identity.Episode)
	assert.Equal(t, 5, *identity.Episode)
}

func TestExtractViaModelRawJSON(t *testing.T) {
	completer := &fakeCompleter{response: ` {"title": "Dark", "season": 1} `}
	c := newIdentify(completer)

	identity, err := c.ExtractViaModel(context.Background(), "whatever", false)
	require.NoError(t, err)
	assert.Equal(t, "Dark", identity.Title)
}

func TestExtractViaModelBraceSpanSingleQuotes(t *testing.T) {
	completer := &fakeCompleter{response: `The answer is {'title': 'Dark', 'episode': 3} as requested.`}
	c := newIdentify(completer)

	identity, err := c.ExtractViaModel(context.Background(), "whatever", false)
	require.NoError(t, err)
	assert.Equal(t, "Dark", identity.Title)
	require.NotNil(t, identity.Episode)
	assert.Equal(t, 3, *identity.Episode)
	// Season must default to 1 when only an episode came back.
	require.NotNil(t, identity.Season)
	assert.Equal(t, 1, *identity.Season)
}

func TestExtractViaModelKeyRegexLastResort(t *testing.T) {
	completer := &fakeCompleter{response: `I think title: "Dark" and season: 3, episode: 7, but I am not sure`}
	c := newIdentify(completer)

	identity, err := c.ExtractViaModel(context.Background(), "whatever", false)
	require.NoError(t, err)
	assert.Equal(t, "Dark", identity.Title)
	require.NotNil(t, identity.Season)
	assert.Equal(t, 3, *identity.Season)
}

func TestExtractViaModelStringNumbers(t *testing.T) {
	completer := &fakeCompleter{response: `{"title": "Dark", "season": "2", "episode": "5"}`}
	c := newIdentify(completer)

	identity, err := c.ExtractViaModel(context.Background(), "whatever", false)
	require.NoError(t, err)
	require.NotNil(t, identity.Season)
	assert.Equal(t, 2, *identity.Season)
}

func TestExtractViaModelFallsBackOnGarbage(t *testing.T) {
	completer := &fakeCompleter{response: "I could not parse that name at all, sorry."}
	c := newIdentify(completer)

	identity, err := c.ExtractViaModel(context.Background(), "Dark.S01E02.1080p.mkv", false)
	require.NoError(t, err)
	assert.Equal(t, "Dark", identity.Title)
	require.NotNil(t, identity.Episode)
	assert.Equal(t, 2, *identity.Episode)
}

func TestExtractViaModelFallsBackOnProviderError(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("connection refused")}
	c := newIdentify(completer)

	identity, err := c.ExtractViaModel(context.Background(), "Dark.S01E02.mkv", false)
	require.NoError(t, err)
	assert.Equal(t, "Dark", identity.Title)
}

func TestExtractViaModelEmptyTitleFallsBack(t *testing.T) {
	completer := &fakeCompleter{response: `{"title": "", "season": 1}`}
	c := newIdentify(completer)

	identity, err := c.ExtractViaModel(context.Background(), "Dark.S01E02.mkv", false)
	require.NoError(t, err)
	assert.Equal(t, "Dark", identity.Title)
}

func TestRecoverIdentityOrderFencedBeforeSpan(t *testing.T) {
	// Both a fenced block and a loose brace span are present; the fenced
	// content must win because the cascade order is part of the contract.
	text := "{'title': 'Wrong'}\n```json\n{\"title\": \"Right\"}\n```"
	identity, err := recoverIdentity(text)
	require.NoError(t, err)
	assert.Equal(t, "Right", identity.Title)
}
