package llm

// IdentityExtractionPrompt is the fixed instruction sent ahead of the
// literal file name when extracting an identity. Kept in one place so it
// can be tuned without hunting through call sites.
const IdentityExtractionPrompt = `You extract structured information from media file names.

Given a file or folder name, identify the title of the movie or show, the season number, and the episode number where present.

Rules:
- The title must not contain release tags (resolution, codec, source, group).
- Season and episode are numbers. Convert Chinese numerals (第十二季 means season 12).
- Omit season or episode entirely when the name does not carry them.

You must respond ONLY with a JSON object like: {"title": "Show Name", "season": 1, "episode": 2}

Now extract from this name:`

// TypeSelectionPrompt asks for a single "type:index" answer when the
// heuristic signals cannot settle movie vs TV. Index is 1-based into the
// candidate list that follows.
const TypeSelectionPrompt = `You decide whether a media name refers to a movie or a TV show.

Below is the name and the top search candidates of each type. Answer with the matching type and the 1-based position of the best candidate in that type's list.

You must respond ONLY in the form type:index, for example tv:1 or movie:2. No other text.`
