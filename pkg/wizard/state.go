package wizard

// Pair is one ordered key/value entry of a durable wizard state.
type Pair struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// State is the durable part of a wizard run: what a reload needs to resume
// where the user left off.
type State struct {
	CurrentStep        int    `json:"currentStep" yaml:"currentStep"`
	Values             []Pair `json:"values" yaml:"values"`
	Errors             []Pair `json:"errors" yaml:"errors"`
	Persisted          []Pair `json:"persisted" yaml:"persisted"`
	AuthenticatedEmail string `json:"authenticatedEmail,omitempty" yaml:"authenticatedEmail,omitempty"`
	Submitted          bool   `json:"submitted,omitempty" yaml:"submitted,omitempty"`
}

// pairs is an insertion-ordered string map.
type pairs struct {
	keys   []string
	values map[string]string
}

func (p *pairs) set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

func (p *pairs) get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

func (p *pairs) snapshot() []Pair {
	out := make([]Pair, 0, len(p.keys))
	for _, k := range p.keys {
		out = append(out, Pair{Key: k, Value: p.values[k]})
	}
	return out
}

func (p *pairs) asMap() map[string]string {
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

func pairsFrom(entries []Pair) pairs {
	var p pairs
	for _, e := range entries {
		p.set(e.Key, e.Value)
	}
	return p
}
