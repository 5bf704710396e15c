// Package match implements the pure identity matching function: given a
// platform roster and a directory snapshot it proposes identity-to-member
// links with a score and a method, never touching storage.
package match

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/rollcallhq/rollcall/internal/identity"
)

// Method labels how a candidate score was produced.
type Method string

const (
	MethodExact       Method = "exact"
	MethodContainment Method = "containment"
	MethodFuzzy       Method = "fuzzy"
)

// Options holds the matching constants. Zero values fall back to defaults.
type Options struct {
	// ScoreThreshold is the minimum accepted score (default 80).
	ScoreThreshold int
	// ContainmentScore is the fixed score for containment matches (default 90).
	ContainmentScore int
}

func (o Options) withDefaults() Options {
	if o.ScoreThreshold <= 0 {
		o.ScoreThreshold = 80
	}
	if o.ContainmentScore <= 0 {
		o.ContainmentScore = 90
	}
	return o
}

// Member is the directory-side view the matcher works against.
type Member struct {
	ID               string
	Handle           string
	Name             string
	LinkedIdentityID string
}

// Proposal is the matcher's verdict for one unlinked identity.
type Proposal struct {
	Identity identity.PlatformIdentity
	// Member is the accepted candidate; nil for ambiguous or below-threshold
	// proposals.
	Member    *Member
	Score     int
	Method    Method
	Ambiguous bool
}

// Accepted reports whether the proposal carries a link to apply.
func (p Proposal) Accepted() bool {
	return p.Member != nil && !p.Ambiguous
}

// Match evaluates every unlinked human identity against every unlinked member
// and returns one proposal per identity, in roster order. It is deterministic:
// the same snapshots always produce the same proposals. Identities or members
// that already carry a link are excluded entirely; the matcher never proposes
// overwriting a link. A tie at the top score across more than one member is
// reported as ambiguous with no member selected.
func Match(roster []identity.PlatformIdentity, members []Member, opts Options) []Proposal {
	opts = opts.withDefaults()

	linkedIdentities := make(map[string]bool, len(members))
	candidates := make([]Member, 0, len(members))
	for _, m := range members {
		if m.LinkedIdentityID != "" {
			linkedIdentities[m.LinkedIdentityID] = true
			continue
		}
		candidates = append(candidates, m)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Handle != candidates[j].Handle {
			return candidates[i].Handle < candidates[j].Handle
		}
		return candidates[i].ID < candidates[j].ID
	})

	var proposals []Proposal
	for _, id := range roster {
		if id.IsBot || linkedIdentities[id.ID] {
			continue
		}
		proposals = append(proposals, evaluate(id, candidates, opts))
	}
	return proposals
}

func evaluate(id identity.PlatformIdentity, candidates []Member, opts Options) Proposal {
	names := normalizeAll(id.Username, id.DisplayName)

	best := Proposal{Identity: id}
	var tied []Member
	for i := range candidates {
		score, method := scorePair(names, normalizeAll(candidates[i].Handle, candidates[i].Name), opts)
		switch {
		case score > best.Score:
			best.Score = score
			best.Method = method
			tied = tied[:0]
			tied = append(tied, candidates[i])
		case score == best.Score && score > 0:
			tied = append(tied, candidates[i])
		}
	}

	if best.Score < opts.ScoreThreshold {
		// Below threshold: keep the best score and method for the report,
		// but select nobody.
		return best
	}
	if len(tied) > 1 {
		// Never guess between equally scored members.
		best.Ambiguous = true
		return best
	}
	member := tied[0]
	best.Member = &member
	return best
}

// scorePair scores one identity against one member over all normalized name
// pairs. Method precedence when several apply: exact, then containment, then
// fuzzy similarity.
func scorePair(identityNames, memberNames []string, opts Options) (int, Method) {
	containment := false
	fuzzyBest := 0
	for _, a := range identityNames {
		for _, b := range memberNames {
			if a == b {
				return 100, MethodExact
			}
			if strings.Contains(a, b) || strings.Contains(b, a) {
				containment = true
				continue
			}
			if sim := similarity(a, b); sim > fuzzyBest {
				fuzzyBest = sim
			}
		}
	}
	if containment && opts.ContainmentScore >= fuzzyBest {
		return opts.ContainmentScore, MethodContainment
	}
	if fuzzyBest > 0 {
		return fuzzyBest, MethodFuzzy
	}
	return 0, ""
}

// similarity derives a [0,100) score from the Levenshtein distance between
// two distinct normalized strings.
func similarity(a, b string) int {
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	if dist >= longest {
		return 0
	}
	return (longest - dist) * 100 / longest
}

// Normalize case-folds s and strips everything but letters and digits, so
// "Jane_Doe!" and "janedoe" compare equal.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func normalizeAll(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := Normalize(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}
