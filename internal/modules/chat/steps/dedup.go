package steps

// dedupPassages drops passages whose signature has already been seen,
// keeping the first occurrence. Order is otherwise preserved.
func dedupPassages(passages []Passage) []Passage {
	if len(passages) == 0 {
		return passages
	}
	seen := make(map[string]bool, len(passages))
	out := make([]Passage, 0, len(passages))
	for _, p := range passages {
		sig := p.Signature
		if sig == "" {
			sig = passageSignature(p.Content)
		}
		if seen[sig] {
			continue
		}
		seen[sig] = true
		p.Signature = sig
		out = append(out, p)
	}
	return out
}
