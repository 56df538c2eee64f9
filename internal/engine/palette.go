package engine

import "hash/fnv"

// Palette is an ordered list of legend colors.
type Palette []string

// DefaultPalette holds the chart legend colors.
var DefaultPalette = Palette{
	"#6C63FF", "#2EC4B6", "#FF6B6B", "#F39C12", "#2ECC71", "#E74C3C",
	"#9B59B6", "#3498DB", "#7AA2F7", "#E0AF68", "#1ABC9C", "#F78FB3",
}

// Color picks a palette slot for a group. A non-negative index selects
// palette[index mod N]; a negative index falls back to a hash of id.
// The hash is 32-bit FNV-1a, non-cryptographic, used only to spread ids
// over the palette in a stable way.
func (p Palette) Color(id string, index int) string {
	if len(p) == 0 {
		p = DefaultPalette
	}
	if index >= 0 {
		return p[index%len(p)]
	}
	return p[hashSlot(id, len(p))]
}

func hashSlot(id string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32() % uint32(n))
}
