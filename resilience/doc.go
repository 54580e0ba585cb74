// Package resilience bounds calls into code the caller does not control.
//
// CallWithTimeout puts a deadline on a call and, if the call is abandoned but
// later produces a value anyway, hands that value to a discard function so
// that it can be released:
//
//	f, err := resilience.CallWithTimeout(ctx, 2*time.Second,
//	    func(ctx context.Context) (*os.File, error) { return os.Open(path) },
//	    func(f *os.File) { _ = f.Close() },
//	)
package resilience
