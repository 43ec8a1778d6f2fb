package insight

import (
	"fmt"
	"hash/fnv"
	"sort"
)

const (
	patternWindow    = 100 // note events kept for matching
	minPatternLength = 3
	maxPatternLength = 16
)

// patternNode is one trie level, keyed by note number.
type patternNode struct {
	children map[uint8]*patternNode
	count    int
}

func newPatternNode() *patternNode {
	return &patternNode{children: make(map[uint8]*patternNode)}
}

// PatternModel finds repeating note sequences. It keeps a sliding
// window of note-on events and a trie counting every subsequence of
// three to sixteen notes ever seen. The trie remembers the whole
// session, the window only limits which candidates get reported.
type PatternModel struct {
	root   *patternNode
	window []uint8
}

func NewPatternModel() *PatternModel {
	return &PatternModel{root: newPatternNode()}
}

// ProcessEvent feeds one raw message. Only sounding note-ons matter
// for melodic patterns, everything else passes through.
func (m *PatternModel) ProcessEvent(data []byte, t float64) {
	if len(data) < 3 || data[0]&0xf0 != 0x90 || data[2] == 0 {
		return
	}

	m.window = append(m.window, data[1])
	if len(m.window) > patternWindow {
		m.window = m.window[1:]
	}

	// count every subsequence ending at the newest note
	for length := minPatternLength; length <= maxPatternLength && length <= len(m.window); length++ {
		m.insert(m.window[len(m.window)-length:])
	}
}

func (m *PatternModel) insert(seq []uint8) {
	node := m.root
	for _, note := range seq {
		child, ok := node.children[note]
		if !ok {
			child = newPatternNode()
			node.children[note] = child
		}
		node = child
	}
	node.count++
}

func (m *PatternModel) lookup(seq []uint8) int {
	node := m.root
	for _, note := range seq {
		child, ok := node.children[note]
		if !ok {
			return 0
		}
		node = child
	}
	return node.count
}

// GenerateInsights reports the sequences in the current window that
// repeated, strongest first.
func (m *PatternModel) GenerateInsights() []Insight {
	seen := make(map[uint64]bool)
	var insights []Insight

	for length := minPatternLength; length <= maxPatternLength; length++ {
		for start := 0; start+length <= len(m.window); start++ {
			seq := m.window[start : start+length]

			id := sequenceID(seq)
			if seen[id] {
				continue
			}
			seen[id] = true

			count := m.lookup(seq)
			if count < 2 {
				continue
			}

			score := float64(count) / 10.0
			if score > 1.0 {
				score = 1.0
			}

			insights = append(insights, Insight{
				Kind:        PatternRecognition,
				Description: fmt.Sprintf("%d note pattern repeated %d times", length, count),
				Score:       score,
			})
		}
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Score > insights[j].Score
	})

	return insights
}

func sequenceID(seq []uint8) uint64 {
	h := fnv.New64a()
	h.Write(seq)
	return h.Sum64()
}
