package match

// sequenceMatcher compares candidate strings against one fixed query using
// the longest-matching-blocks similarity ratio. The query is indexed once so
// a whole catalog can be scanned without re-indexing it.
type sequenceMatcher struct {
	b          []rune
	b2j        map[rune][]int
	fullbcount map[rune]int
}

// popularMinLen is the query length from which over-represented runes are
// dropped from the index.
const popularMinLen = 200

func newSequenceMatcher(query string) *sequenceMatcher {
	b := []rune(query)
	b2j := make(map[rune][]int)
	fullbcount := make(map[rune]int)
	for i, r := range b {
		b2j[r] = append(b2j[r], i)
		fullbcount[r]++
	}

	if n := len(b); n >= popularMinLen {
		ntest := n/100 + 1
		for r, idx := range b2j {
			if len(idx) > ntest {
				delete(b2j, r)
			}
		}
	}

	return &sequenceMatcher{b: b, b2j: b2j, fullbcount: fullbcount}
}

// realQuickRatio is an upper bound on ratio based on lengths only.
func (m *sequenceMatcher) realQuickRatio(a []rune) float64 {
	la, lb := len(a), len(m.b)
	return calculateRatio(min(la, lb), la+lb)
}

// quickRatio is an upper bound on ratio based on shared rune counts.
func (m *sequenceMatcher) quickRatio(a []rune) float64 {
	avail := make(map[rune]int, len(a))
	matches := 0
	for _, r := range a {
		n, ok := avail[r]
		if !ok {
			n = m.fullbcount[r]
		}
		avail[r] = n - 1
		if n > 0 {
			matches++
		}
	}
	return calculateRatio(matches, len(a)+len(m.b))
}

// ratio returns 2*M/T where M is the number of runes in matching blocks and
// T the combined length of both sequences.
func (m *sequenceMatcher) ratio(a []rune) float64 {
	return calculateRatio(m.matchingRunes(a), len(a)+len(m.b))
}

type span struct {
	alo, ahi, blo, bhi int
}

// matchingRunes sums the sizes of all matching blocks between a and b.
func (m *sequenceMatcher) matchingRunes(a []rune) int {
	total := 0
	queue := []span{{0, len(a), 0, len(m.b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := m.findLongestMatch(a, s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		total += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return total
}

// findLongestMatch returns the longest block a[i:i+k] == b[j:j+k] inside
// the given bounds. Among equally long blocks the one starting earliest in a,
// then earliest in b, wins.
func (m *sequenceMatcher) findLongestMatch(a []rune, alo, ahi, blo, bhi int) (int, int, int) {
	b := m.b
	besti, bestj, bestsize := alo, blo, 0

	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		newj2len := map[int]int{}
		for _, j := range m.b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}

	// Popular runes are missing from the index; grow the block over them.
	for besti > alo && bestj > blo && a[besti-1] == b[bestj-1] {
		besti, bestj, bestsize = besti-1, bestj-1, bestsize+1
	}
	for besti+bestsize < ahi && bestj+bestsize < bhi && a[besti+bestsize] == b[bestj+bestsize] {
		bestsize++
	}

	return besti, bestj, bestsize
}

func calculateRatio(matches, length int) float64 {
	if length > 0 {
		return 2.0 * float64(matches) / float64(length)
	}
	return 1.0
}

// Ratio returns the similarity of a to b in [0, 1]. It is not symmetric for
// very long b, where over-represented runes of b are ignored while indexing.
func Ratio(a, b string) float64 {
	return newSequenceMatcher(b).ratio([]rune(a))
}
