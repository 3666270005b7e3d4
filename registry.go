package signals

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry maps function names to their defining expressions. A Registry is
// safe for concurrent use and may be shared by any number of Evaluators.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]string
	log  logrus.FieldLogger
}

// NewRegistry creates an empty registry. Definitions are confirmed through
// log, or through the standard logrus logger if log is nil.
func NewRegistry(log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{defs: make(map[string]string), log: log}
}

// Define sets the body of the named function, replacing any previous
// definition. The body is stored unparsed and refers to time as t.
// Names of built-in functions can be defined but are never called, because
// the built-in takes precedence.
func (r *Registry) Define(name, body string) {
	r.mu.Lock()
	r.defs[name] = body
	r.mu.Unlock()
	r.log.WithField("function", name).Infof("Function %s defined as %s", name, body)
}

// Lookup returns the body of the named function. The error is a
// *NameNotFoundError if the function was never defined.
func (r *Registry) Lookup(name string) (string, error) {
	r.mu.RLock()
	body, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return "", &NameNotFoundError{Name: name}
	}
	return body, nil
}

// Names returns the defined function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v := make([]string, 0, len(r.defs))
	for k := range r.defs {
		v = append(v, k)
	}
	sortstrs(v)
	return v
}
