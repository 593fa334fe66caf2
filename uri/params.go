package uri

import (
	"slices"
	"strings"
)

// Params is an ordered multi-map of query parameters. Keys keep the order
// of their first occurrence; values of a repeated key keep their order and
// duplicates.
//
// The zero value is empty and ready to use. Params is not safe for
// concurrent mutation.
type Params struct {
	keys []string
	vals map[string][]string
}

// NewParams returns an empty Params.
func NewParams() *Params { return &Params{} }

// ParamsOf builds Params from alternating key/value arguments.
// It panics on an odd argument count.
func ParamsOf(kv ...string) *Params {
	if len(kv)%2 != 0 {
		panic("uri: ParamsOf needs key/value pairs")
	}
	p := &Params{}
	for i := 0; i < len(kv); i += 2 {
		p.Add(kv[i], kv[i+1])
	}
	return p
}

// Add appends v to the values of k. A key seen once holds a single value;
// every further occurrence appends to its list.
func (p *Params) Add(k, v string) {
	if p.vals == nil {
		p.vals = make(map[string][]string)
	}
	if _, ok := p.vals[k]; !ok {
		p.keys = append(p.keys, k)
	}
	p.vals[k] = append(p.vals[k], v)
}

// Set replaces all values of k with v. An existing key keeps its position.
func (p *Params) Set(k, v string) {
	if p.vals == nil {
		p.vals = make(map[string][]string)
	}
	if _, ok := p.vals[k]; !ok {
		p.keys = append(p.keys, k)
	}
	p.vals[k] = []string{v}
}

// Get returns the first value of k.
func (p *Params) Get(k string) (string, bool) {
	vs := p.vals[k]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Values returns a copy of every value of k in order.
func (p *Params) Values(k string) []string { return slices.Clone(p.vals[k]) }

// IsMulti reports whether k occurred more than once.
func (p *Params) IsMulti(k string) bool { return len(p.vals[k]) > 1 }

// Has reports whether k is present.
func (p *Params) Has(k string) bool {
	_, ok := p.vals[k]
	return ok
}

// Del removes k and all its values.
func (p *Params) Del(k string) {
	if _, ok := p.vals[k]; !ok {
		return
	}
	delete(p.vals, k)
	p.keys = slices.DeleteFunc(p.keys, func(s string) bool { return s == k })
}

// Keys returns the keys in first-occurrence order.
func (p *Params) Keys() []string { return slices.Clone(p.keys) }

// Len returns the number of distinct keys.
func (p *Params) Len() int { return len(p.keys) }

// Clone returns a deep copy.
func (p *Params) Clone() *Params {
	c := &Params{keys: slices.Clone(p.keys)}
	if p.vals != nil {
		c.vals = make(map[string][]string, len(p.vals))
		for k, vs := range p.vals {
			c.vals[k] = slices.Clone(vs)
		}
	}
	return c
}

// Merge sets every key of o on p, replacing existing values.
func (p *Params) Merge(o *Params) {
	for _, k := range o.keys {
		vs := o.vals[k]
		p.Set(k, vs[0])
		for _, v := range vs[1:] {
			p.Add(k, v)
		}
	}
}

// Map returns a copy as a plain map.
func (p *Params) Map() map[string][]string {
	m := make(map[string][]string, len(p.keys))
	for k, vs := range p.vals {
		m[k] = slices.Clone(vs)
	}
	return m
}

// Equal reports whether p and o hold the same keys in the same order with
// the same values.
func (p *Params) Equal(o *Params) bool {
	if !slices.Equal(p.keys, o.keys) {
		return false
	}
	for _, k := range p.keys {
		if !slices.Equal(p.vals[k], o.vals[k]) {
			return false
		}
	}
	return true
}

// String renders p as an unescaped query, for diagnostics.
func (p *Params) String() string {
	var b strings.Builder
	for _, k := range p.keys {
		for _, v := range p.vals[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}
