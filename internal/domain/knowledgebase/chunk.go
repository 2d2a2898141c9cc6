package knowledgebase

import "strings"

const (
	// DefaultChunkWords is the window size for document chunking.
	DefaultChunkWords = 300
	// DefaultOverlapWords is the number of words shared between adjacent chunks.
	DefaultOverlapWords = 50
)

// SplitContent splits document content into overlapping word-window chunks.
// chunkWords and overlapWords fall back to the defaults when <= 0; overlap is
// clamped below the window size so every chunk makes progress.
func SplitContent(content string, chunkWords, overlapWords int) []string {
	if chunkWords <= 0 {
		chunkWords = DefaultChunkWords
	}
	if overlapWords < 0 {
		overlapWords = DefaultOverlapWords
	}
	if overlapWords >= chunkWords {
		overlapWords = chunkWords - 1
	}

	words := strings.Fields(content)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= chunkWords {
		return []string{strings.Join(words, " ")}
	}

	step := chunkWords - overlapWords
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + chunkWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
