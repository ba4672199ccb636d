package params

import (
	"sync"

	"bootcode-go/types"
)

// Store is an ordered float32 parameter store. A parameter value is either
// explicit (Set) or a default (SetDefaultIfUnset); defaults never overwrite
// explicit values. Parameters marked persistent are exported for storage in
// the bootloader sector.
type Store struct {
	mu     sync.Mutex
	order  []*param
	byName map[string]*param
}

type param struct {
	name    string
	value   float32
	set     bool // explicitly set
	persist bool
}

func NewStore() *Store {
	return &Store{byName: map[string]*param{}}
}

// get returns the named parameter, creating it on first use. Caller holds mu.
func (s *Store) get(name string) *param {
	p, ok := s.byName[name]
	if !ok {
		p = &param{name: name}
		s.byName[name] = p
		s.order = append(s.order, p)
	}
	return p
}

// Set assigns an explicit value.
func (s *Store) Set(name string, v float32) {
	s.mu.Lock()
	p := s.get(name)
	p.value = v
	p.set = true
	s.mu.Unlock()
}

// SetDefaultIfUnset injects v as a default unless name already has an
// explicit value. Reports whether the default was applied.
func (s *Store) SetDefaultIfUnset(name string, v float32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.get(name)
	if p.set {
		return false
	}
	p.value = v
	return true
}

func (s *Store) Get(name string) (float32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byName[name]
	if !ok {
		return 0, false
	}
	return p.value, true
}

// SetPersistent marks name for storage in the bootloader sector.
func (s *Store) SetPersistent(name string, on bool) {
	s.mu.Lock()
	s.get(name).persist = on
	s.mu.Unlock()
}

// Persistable returns the persistent parameters in definition order.
func (s *Store) Persistable() []types.NamedValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.NamedValue
	for _, p := range s.order {
		if p.persist {
			out = append(out, types.NamedValue{Name: p.name, Value: p.value})
		}
	}
	return out
}
