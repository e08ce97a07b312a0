package feed

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrBadSelection is returned for answers that are neither all, none nor a
// comma-separated list of numbers.
var ErrBadSelection = eris.New("feed: invalid selection")

// ParseSelection turns an operator answer into zero-based indices into a
// list of n candidates. "all" selects everything, "none" or a blank answer
// nothing, and "1,3" the listed 1-based positions. Out-of-range numbers
// are ignored; duplicates are kept once.
func ParseSelection(answer string, n int) ([]int, error) {
	answer = strings.ToLower(strings.TrimSpace(answer))
	switch answer {
	case "all":
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	case "none", "":
		return nil, nil
	}

	seen := make(map[int]bool)
	var out []int
	for _, part := range strings.Split(answer, ",") {
		num, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, eris.Wrapf(ErrBadSelection, "%q", answer)
		}
		if num < 1 || num > n || seen[num] {
			continue
		}
		seen[num] = true
		out = append(out, num-1)
	}
	return out, nil
}
