package shots

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClutchThreshold sets the leverage above which a shot counts as clutch.
func WithClutchThreshold(v float64) Option {
	return func(a *Aggregator) {
		if v > 0 {
			a.clutchThreshold = v
		}
	}
}

// WithMaxShots caps the number of events evaluated per call. Zero means no cap.
func WithMaxShots(n int) Option {
	return func(a *Aggregator) {
		if n >= 0 {
			a.maxShots = n
		}
	}
}

// WithDropHook registers a callback invoked once per dropped event.
func WithDropHook(fn func(*ParseError)) Option {
	return func(a *Aggregator) {
		a.onDrop = fn
	}
}

// WithEvalHook registers a callback invoked once per evaluated shot.
func WithEvalHook(fn func()) Option {
	return func(a *Aggregator) {
		a.onEval = fn
	}
}
