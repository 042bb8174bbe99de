package filesystem

// Observer records filesystem retry metrics. The metrics package provides the
// implementation so that filesystem does not import it.
type Observer interface {
	// ObserveStaleError records an ESTALE result for op ("stat", "open", "readdir").
	ObserveStaleError(op string)
	// ObserveRetryOutcome records whether a retried op eventually succeeded.
	ObserveRetryOutcome(op string, success bool)
	// ObserveRejectedPath records a client path refused by the Validator.
	ObserveRejectedPath(reason string)
}

// defaultObserver is the package-level observer set at startup.
// If nil, metric recording is skipped (safe for tests).
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observeStale(op string) {
	if defaultObserver != nil {
		defaultObserver.ObserveStaleError(op)
	}
}

func observeRetryOutcome(op string, success bool) {
	if defaultObserver != nil {
		defaultObserver.ObserveRetryOutcome(op, success)
	}
}

func observeRejected(reason string) {
	if defaultObserver != nil {
		defaultObserver.ObserveRejectedPath(reason)
	}
}
