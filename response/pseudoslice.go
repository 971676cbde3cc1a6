package response

// Pseudoslice presents the concatenation of one or more disjoint byte ranges
// as a single logically addressable span, so a sender can drain it with one
// cursor instead of materializing a combined buffer (spec.md §4.3). The
// connection engine uses this to send "headers followed by body" without
// copying a potentially large, arena- or caller-owned body into the header
// scratch buffer.
type Pseudoslice struct {
	ranges [][]byte
	total  int
}

// NewPseudoslice builds a Pseudoslice over ranges in order. Empty ranges are
// dropped so Get never has to skip over them.
func NewPseudoslice(ranges ...[]byte) Pseudoslice {
	p := Pseudoslice{ranges: make([][]byte, 0, len(ranges))}
	for _, r := range ranges {
		if len(r) == 0 {
			continue
		}
		p.ranges = append(p.ranges, r)
		p.total += len(r)
	}
	return p
}

// Len returns the total logical length.
func (p Pseudoslice) Len() int { return p.total }

// Get returns a direct slice into whichever underlying range contains
// [offset, offset+window), without ever spanning two ranges. Callers that
// want more than one range's worth of bytes must call Get repeatedly,
// advancing offset by the length actually returned — this is what lets
// send_all drain the Pseudoslice with a single cursor (spec.md §4.3).
func (p Pseudoslice) Get(offset, window int) []byte {
	if offset < 0 || offset >= p.total || window <= 0 {
		return nil
	}
	pos := 0
	for _, r := range p.ranges {
		end := pos + len(r)
		if offset < end {
			start := offset - pos
			avail := len(r) - start
			if window > avail {
				window = avail
			}
			return r[start : start+window]
		}
		pos = end
	}
	return nil
}
