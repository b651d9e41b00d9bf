package derive

// Option applies a configuration option to the Deriver.
type Option func(*Deriver)

// WithPair adds a duration. Pairs named like an existing one replace it,
// except TimeAwake which is fixed.
func WithPair(p Pair) Option {
	return func(d *Deriver) {
		if p.Name == "" || p.Name == TimeAwake || !p.From.Valid() || !p.To.Valid() {
			return
		}
		for i := range d.pairs {
			if d.pairs[i].Name == p.Name {
				d.pairs[i] = p
				return
			}
		}
		d.pairs = append(d.pairs, p)
	}
}

// WithPairs adds several durations in order.
func WithPairs(pairs []Pair) Option {
	return func(d *Deriver) {
		for _, p := range pairs {
			WithPair(p)(d)
		}
	}
}
