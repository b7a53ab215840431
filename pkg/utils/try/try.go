package try

// something having method `Fatal`.
//
// For example in standard libraries: *testing.T, log.Logger
type Fataler interface {
	Fatal(...any)
}

// Either wraps a (T, error) pair.
type Either[T any] struct {
	val T
	err error
}

// To wraps the return values of a fallible call:
//
//	v := try.To(strconv.Atoi(s)).OrFatal(t)
func To[T any](val T, err error) Either[T] {
	return Either[T]{val: val, err: err}
}

// Get returns the wrapped pair.
func (e Either[T]) Get() (T, error) {
	return e.val, e.err
}

// OrFatal returns the value, or calls ftl.Fatal with the error. If ftl
// has a Helper method (like *testing.T), it is called first.
func (e Either[T]) OrFatal(ftl Fataler) T {
	if e.err != nil {
		if h, ok := ftl.(interface{ Helper() }); ok {
			h.Helper()
		}
		ftl.Fatal(e.err)
	}
	return e.val
}

// OrDefault returns the value, or def when the pair carries an error.
func (e Either[T]) OrDefault(def T) T {
	if e.err != nil {
		return def
	}
	return e.val
}
