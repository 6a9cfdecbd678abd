package diffengine

// IgnorePolicy names the ignore tokens active for one comparison run.
// Tokens are accepted silently whether or not they appear in DefaultTokens —
// this is deliberately not a closed-set validator.
type IgnorePolicy struct {
	Tokens map[string]struct{}
}

// NewIgnorePolicy builds a policy from a list of tokens, deduplicating as it
// goes.
func NewIgnorePolicy(tokens ...string) *IgnorePolicy {
	p := &IgnorePolicy{Tokens: make(map[string]struct{}, len(tokens))}
	for _, t := range tokens {
		p.Tokens[t] = struct{}{}
	}
	return p
}

func (p *IgnorePolicy) has(token string) bool {
	if p == nil || token == "" {
		return false
	}
	_, ok := p.Tokens[token]
	return ok
}

// ApplyIgnores walks d in post-order, forcing any node whose IgnoreToken is
// in pol.Tokens to ChangeUnchanged while setting WasIgnored so a
// "show ignored" render can still find it. A composite node whose children
// all end up unchanged (whether genuinely unchanged or ignored down to it)
// propagates to unchanged itself, even if the composite node carries no
// IgnoreToken of its own.
func ApplyIgnores(d *Delta, pol *IgnorePolicy, showIgnored bool) {
	if d == nil {
		return
	}
	for _, c := range d.Children {
		ApplyIgnores(c, pol, showIgnored)
	}

	if pol.has(d.IgnoreToken) && d.Change != ChangeUnchanged {
		d.Change = ChangeUnchanged
		d.WasIgnored = true
	}

	if len(d.Children) > 0 {
		if !showIgnored {
			d.Children = pruneIgnored(d.Children)
		}
		if d.Change == ChangeModified && aggregateChange(d.Children) == ChangeUnchanged {
			d.Change = ChangeUnchanged
		}
	}
}

// pruneIgnored drops children that were suppressed to unchanged, so a
// default (non "show ignored") render never sees them.
func pruneIgnored(children []*Delta) []*Delta {
	out := children[:0:0]
	for _, c := range children {
		if c.WasIgnored && c.Change == ChangeUnchanged {
			continue
		}
		out = append(out, c)
	}
	return out
}
