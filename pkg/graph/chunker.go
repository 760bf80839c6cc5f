// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graph

import "strings"

var sentenceTerminators = map[rune]bool{'.': true, '!': true, '?': true}

// Chunk splits text into ≤chunkSize character windows with overlap carry.
// A window prefers to end at a sentence boundary when the
// boundary falls past 0.3·chunkSize into the window; otherwise it uses the
// hard chunkSize cutoff.
//
// Concatenating the chunks while subtracting the overlap carried between
// consecutive chunks reconstructs text byte-for-byte except for whitespace
// trimmed at chunk edges.
func Chunk(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	threshold := int(0.3 * float64(chunkSize))

	var chunks []string
	start := 0
	for start < n {
		end := start + chunkSize
		if end > n {
			end = n
		}

		// Only prefer a sentence boundary for interior windows; the final
		// window already ends at the text's end.
		if end < n {
			if cut := sentenceBoundary(runes[start:end], threshold); cut > 0 {
				end = start + cut
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			// Guard against a degenerate window (e.g. an all-whitespace
			// chunk collapsing the window to nothing) looping forever.
			next = end
		}
		start = next
	}

	return chunks
}

// sentenceBoundary returns the length of window up to and including the
// last sentence terminator, if that terminator's position is past
// threshold; otherwise it returns 0, meaning "use the hard boundary".
func sentenceBoundary(window []rune, threshold int) int {
	for i := len(window) - 1; i >= 0; i-- {
		if sentenceTerminators[window[i]] {
			if i+1 > threshold {
				return i + 1
			}
			return 0
		}
	}
	return 0
}
