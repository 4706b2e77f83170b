package awsmock

import (
	"fmt"
	"sync"
)

// TestingT is the assertion context handed to mocks and to Response.Validate.
// *testing.T satisfies it, as does anything testify's assert package accepts plus Logf.
type TestingT interface {
	Errorf(format string, args ...interface{})
	Logf(format string, args ...interface{})
}

// Response is the outcome of one simulated call
type Response struct {
	// Err, if set, is the error the simulated call fails with
	Err error
	// Result is the payload the simulated call succeeds with
	Result interface{}
	// Validate, if set, is called with the assertion context and the call's input
	Validate func(t TestingT, input interface{})
}

// Source describes how to produce the Response for each call of an operation.
// Use Fixed, Sequence, Generator or SourceOf to create one.
type Source interface {
	// resolve produces the response for a call. cursor is the position of the call
	// (0-based) for sequenced sources, and -1 for fixed ones.
	resolve(cursor int, input interface{}) *Response
	sequenced() bool
}

type fixedSource struct{ response *Response }

func (s fixedSource) resolve(int, interface{}) *Response { return s.response }
func (s fixedSource) sequenced() bool                    { return false }

type sequenceSource struct{ responses []*Response }

func (s sequenceSource) resolve(cursor int, _ interface{}) *Response {
	if cursor < 0 || cursor >= len(s.responses) {
		return nil
	}
	return s.responses[cursor]
}
func (s sequenceSource) sequenced() bool { return true }

type generatorSource struct {
	generate func(input interface{}) *Response
}

func (s generatorSource) resolve(_ int, input interface{}) *Response { return s.generate(input) }
func (s generatorSource) sequenced() bool                             { return true }

// Fixed returns a source that answers every call with r
func Fixed(r *Response) Source {
	return fixedSource{response: r}
}

// Sequence returns a source that answers the k-th call with rs[k-1], and with nil (no response)
// once every response has been used.
func Sequence(rs ...*Response) Source {
	return sequenceSource{responses: rs}
}

// Generator returns a source that answers every call with generate(input)
func Generator(generate func(input interface{}) *Response) Source {
	return generatorSource{generate: generate}
}

// SourceOf converts a loosely typed response configuration into a Source. It accepts a Source,
// a *Response or Response, a []*Response or []Response, a func(interface{}) *Response, or nil.
// It panics on anything else.
func SourceOf(v interface{}) Source {
	switch s := v.(type) {
	case nil:
		return Fixed(nil)
	case Source:
		return s
	case *Response:
		return Fixed(s)
	case Response:
		return Fixed(&s)
	case []*Response:
		return Sequence(s...)
	case []Response:
		rs := make([]*Response, len(s))
		for i := range s {
			rs[i] = &s[i]
		}
		return Sequence(rs...)
	case func(interface{}) *Response:
		return Generator(s)
	}
	panic(fmt.Sprintf("awsmock: cannot use %T as a response source", v))
}

// Resolver picks the response for each call of each operation, keeping one cursor per
// operation name for sequence and generator sources.
type Resolver struct {
	mu      sync.Mutex
	sources map[string]Source
	cursors map[string]int
}

// NewResolver creates a resolver over the given sources, keyed by operation name
func NewResolver(sources map[string]Source) *Resolver {
	copied := make(map[string]Source, len(sources))
	for op, s := range sources {
		copied[op] = s
	}
	return &Resolver{sources: copied, cursors: map[string]int{}}
}

// Resolve returns the response for the next call of op with the given input. A nil response
// means nothing is configured for this call.
func (r *Resolver) Resolve(op string, input interface{}) *Response {
	r.mu.Lock()
	source, ok := r.sources[op]
	if !ok || source == nil {
		r.mu.Unlock()
		return nil
	}
	cursor := -1
	if source.sequenced() {
		cursor = 0
		if prev, ok := r.cursors[op]; ok {
			cursor = prev + 1
		}
		r.cursors[op] = cursor
	}
	r.mu.Unlock()
	return source.resolve(cursor, input)
}

// Cursor returns the position of the last resolved call of op, and false if op has a fixed
// source or has not been resolved yet.
func (r *Resolver) Cursor(op string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cursor, ok := r.cursors[op]
	return cursor, ok
}
