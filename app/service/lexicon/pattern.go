package lexicon

import (
	"regexp"
	"strconv"
	"strings"
)

// SlotCount is the size of captured variable arrays: slot 0 holds the chosen
// response, slots 1-5 the values of [n.1]..[n.5].
const SlotCount = 6

var placeholderRe = regexp.MustCompile(`\[n\.(\d+)\]`)

type variablePattern struct {
	re    *regexp.Regexp
	slots []int
}

// compilePattern turns a keyword with [n.i] placeholders into an anchored
// regexp capturing one or more characters, non-greedy, per placeholder.
// Keywords without placeholders return nil.
func compilePattern(keyword string) *variablePattern {
	locs := placeholderRe.FindAllStringSubmatchIndex(keyword, -1)
	if len(locs) == 0 {
		return nil
	}

	var (
		expr  strings.Builder
		slots = make([]int, 0, len(locs))
		last  int
	)

	expr.WriteString("^")

	for _, loc := range locs {
		expr.WriteString(regexp.QuoteMeta(keyword[last:loc[0]]))
		expr.WriteString("(.+?)")

		index, err := strconv.Atoi(keyword[loc[2]:loc[3]])
		if err != nil {
			index = -1
		}
		slots = append(slots, index)

		last = loc[1]
	}

	expr.WriteString(regexp.QuoteMeta(keyword[last:]))
	expr.WriteString("$")

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil
	}

	return &variablePattern{re: re, slots: slots}
}

// match returns the captured slots, or nil when the input does not match or
// nothing landed in a usable slot.
func (p *variablePattern) match(input string) []string {
	if p == nil {
		return nil
	}

	groups := p.re.FindStringSubmatch(input)
	if groups == nil {
		return nil
	}

	result := make([]string, SlotCount)
	filled := false

	for i, slot := range p.slots {
		if slot < 0 || slot >= SlotCount {
			continue
		}

		result[slot] = groups[i+1]
		filled = filled || groups[i+1] != ""
	}

	if !filled {
		return nil
	}

	return result
}
