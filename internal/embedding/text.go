package embedding

import (
	"fmt"
	"strings"
)

// Entity text builders. The text fed to the embedder is assembled from
// whatever metadata fields are present; absent fields are simply omitted
// rather than rendered as placeholders.

// ArtistText builds embedding text for an artist. The name is always
// present; tags, similar artists and bio only sometimes.
func ArtistText(name string, tags, similar []string, bioContent, bioSummary string) string {
	parts := []string{fmt.Sprintf("Artist: %s", name)}

	if len(tags) > 0 {
		parts = append(parts, "Genres/tags: "+strings.Join(tags, ", "))
	}
	if len(similar) > 0 {
		parts = append(parts, "Similar artists: "+strings.Join(similar, ", "))
	}
	if bio := firstNonEmpty(cleanWiki(bioContent), cleanWiki(bioSummary)); bio != "" {
		parts = append(parts, "Bio: "+bio)
	}

	return strings.Join(parts, ". ")
}

// AlbumText builds embedding text for an album from its name, artist, tags,
// track listing and wiki.
func AlbumText(name, artist string, tags, tracks []string, wikiContent, wikiSummary string) string {
	parts := []string{fmt.Sprintf("Album: %s by %s", name, artist)}

	if len(tags) > 0 {
		parts = append(parts, "Genres/tags: "+strings.Join(tags, ", "))
	}
	if len(tracks) > 0 {
		parts = append(parts, "Tracks: "+strings.Join(tracks, ", "))
	}
	if wiki := firstNonEmpty(cleanWiki(wikiContent), cleanWiki(wikiSummary)); wiki != "" {
		parts = append(parts, "About: "+wiki)
	}

	return strings.Join(parts, ". ")
}

// TrackText builds embedding text for a track. Track metadata is sparse, so
// the core "{track} from {album} by {artist}" line carries most of the
// signal.
func TrackText(name, artist, album string, tags []string, wikiContent, wikiSummary string) string {
	core := fmt.Sprintf("Track: %s by %s", name, artist)
	if album != "" {
		core += fmt.Sprintf(" from album %s", album)
	}
	parts := []string{core}

	if len(tags) > 0 {
		parts = append(parts, "Genres/tags: "+strings.Join(tags, ", "))
	}
	if wiki := firstNonEmpty(cleanWiki(wikiContent), cleanWiki(wikiSummary)); wiki != "" {
		parts = append(parts, "About: "+wiki)
	}

	return strings.Join(parts, ". ")
}

// cleanWiki strips the trailing Last.fm attribution link from wiki text.
func cleanWiki(text string) string {
	if idx := strings.Index(text, `<a href="https://www.last.fm`); idx != -1 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
