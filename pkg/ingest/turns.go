// Package ingest is the ingestion pipeline (C5): turn parsing, fragment
// splitting with soft sentence boundaries, stable fragment ids, batch
// embedding, and the tri-store commit sequence (relational, then
// vector, then graph).
package ingest

import "strings"

// Turn is one speaker utterance as parsed from a source document.
type Turn struct {
	Speaker string
	Text    string
}

// joinConsecutiveTurns merges adjacent turns from the same speaker
// into a single turn, the first step of fragment splitting.
func joinConsecutiveTurns(turns []Turn) []Turn {
	if len(turns) == 0 {
		return nil
	}
	out := []Turn{turns[0]}
	for _, t := range turns[1:] {
		last := &out[len(out)-1]
		if strings.EqualFold(last.Speaker, t.Speaker) {
			last.Text = strings.TrimSpace(last.Text + " " + t.Text)
			continue
		}
		out = append(out, t)
	}
	return out
}

// sentenceBoundaries returns the byte offsets right after each
// sentence-ending punctuation mark in text — candidate soft split
// points so fragments don't cut mid-sentence when avoidable.
func sentenceBoundaries(text string) []int {
	var bounds []int
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			bounds = append(bounds, i+1)
		}
	}
	return bounds
}

// splitIntoFragments breaks text into chunks of at most maxChars,
// cutting at the last sentence boundary that lies at least minChars
// into the window and otherwise hard-cutting at maxChars. minChars
// bounds only those cuts: text no longer than maxChars is returned
// whole, and the final chunk keeps whatever remains, so either can be
// shorter than minChars.
func splitIntoFragments(text string, minChars, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	bounds := sentenceBoundaries(text)
	var fragments []string
	start := 0
	for start < len(text) {
		remaining := len(text) - start
		if remaining <= maxChars {
			fragments = append(fragments, strings.TrimSpace(text[start:]))
			break
		}

		cut := start + maxChars
		best := -1
		for _, b := range bounds {
			if b <= start {
				continue
			}
			if b-start < minChars {
				continue
			}
			if b > cut {
				break
			}
			best = b
		}
		if best == -1 {
			best = cut
		}

		fragments = append(fragments, strings.TrimSpace(text[start:best]))
		start = best
	}
	return fragments
}
