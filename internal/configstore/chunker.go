package configstore

import "strings"

const (
	// MaxWriteSize is the largest single write the instrument accepts
	// without risking a receive-buffer deadlock
	MaxWriteSize = 1024

	// MaxChunkPayload is the command payload budget per chunk once the
	// synchronization prefix and the line terminator are accounted for
	MaxChunkPayload = MaxWriteSize - len(syncPrefix) - 1

	// syncPrefix makes the instrument finish the previous command group
	// before parsing the chunk
	syncPrefix = "*WAI;"
)

// Chunk splits a composite configuration string (colon-prefixed command
// sections separated by ';') into independently sendable commands. Each
// chunk is prefixed with the synchronization directive, stays within
// MaxWriteSize, and splits only at section boundaries, never inside a
// ":SECTION...;" unit.
//
// A string that already fits is wrapped as a single chunk unmodified.
// Packing is greedy left to right; the final remainder is emitted as the
// last chunk even when a single oversized section made further packing
// impossible.
func Chunk(s string) []string {
	if len(s) < MaxChunkPayload {
		return []string{syncPrefix + strings.Trim(s, ";\n") + "\n"}
	}

	sections := SplitSections(s)
	var chunks []string

	for len(sections) > 0 {
		take := 0
		size := 0
		for _, sec := range sections[take:] {
			// +1 for the ';' that terminates or separates the section
			if size+len(sec)+1 > MaxChunkPayload {
				break
			}
			size += len(sec) + 1
			take++
		}

		if take == 0 || take == len(sections) {
			// Remainder (possibly an oversized tail): emit as the last
			// chunk without a trailing separator
			chunks = append(chunks, syncPrefix+strings.Join(sections, ";")+"\n")
			break
		}

		chunks = append(chunks, syncPrefix+strings.Join(sections[:take], ";")+";\n")
		sections = sections[take:]
	}

	return chunks
}

// SplitSections splits a composite string into its ordered ":SECTION..."
// units. Separators inside a section (";FIELD VALUE") are preserved; the
// boundary between sections is ";:".
func SplitSections(s string) []string {
	trimmed := strings.Trim(s, ";\n")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, ";:")
	for i := 1; i < len(parts); i++ {
		parts[i] = ":" + parts[i]
	}
	return parts
}
