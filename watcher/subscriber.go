package watcher

// Subscriber handles event subscriptions.
type Subscriber struct {
	done                   chan struct{}
	runStartedHandler      func(RunStarted)
	snapshotFetchedHandler func(SnapshotFetched)
	fetchFailedHandler     func(FetchFailed)
	changesHandler         func(ChangesDetected)
	notifyFailedHandler    func(NotifyFailed)
	stateSavedHandler      func(StateSaved)
	runCompletedHandler    func(RunCompleted)
	runErrorHandler        func(RunError)
}

// OnRunStarted sets the handler for RunStarted events
func OnRunStarted(fn func(RunStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.runStartedHandler = fn }
}

// OnSnapshotFetched sets the handler for SnapshotFetched events
func OnSnapshotFetched(fn func(SnapshotFetched)) func(*Subscriber) {
	return func(s *Subscriber) { s.snapshotFetchedHandler = fn }
}

// OnFetchFailed sets the handler for FetchFailed events
func OnFetchFailed(fn func(FetchFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.fetchFailedHandler = fn }
}

// OnChangesDetected sets the handler for ChangesDetected events
func OnChangesDetected(fn func(ChangesDetected)) func(*Subscriber) {
	return func(s *Subscriber) { s.changesHandler = fn }
}

// OnNotifyFailed sets the handler for NotifyFailed events
func OnNotifyFailed(fn func(NotifyFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.notifyFailedHandler = fn }
}

// OnStateSaved sets the handler for StateSaved events
func OnStateSaved(fn func(StateSaved)) func(*Subscriber) {
	return func(s *Subscriber) { s.stateSavedHandler = fn }
}

// OnRunCompleted sets the handler for RunCompleted events
func OnRunCompleted(fn func(RunCompleted)) func(*Subscriber) {
	return func(s *Subscriber) { s.runCompletedHandler = fn }
}

// OnRunError sets the handler for RunError events
func OnRunError(fn func(RunError)) func(*Subscriber) {
	return func(s *Subscriber) { s.runErrorHandler = fn }
}

// NewSubscriber creates a Subscriber with the given options and starts the
// dispatch loop. Returns a closer function that waits for all events to be
// processed.
//
// The subscriber processes events until the events channel closes, then the
// closer function confirms all processing is complete:
//
//	closer := watcher.NewSubscriber(events,
//	  watcher.OnRunCompleted(func(e RunCompleted) { ... }),
//	)
//	defer closer()
func NewSubscriber(events <-chan Event, opts ...func(*Subscriber)) func() {
	s := &Subscriber{
		done:                   make(chan struct{}),
		runStartedHandler:      func(RunStarted) {},      // nop by default
		snapshotFetchedHandler: func(SnapshotFetched) {}, // nop by default
		fetchFailedHandler:     func(FetchFailed) {},     // nop by default
		changesHandler:         func(ChangesDetected) {}, // nop by default
		notifyFailedHandler:    func(NotifyFailed) {},    // nop by default
		stateSavedHandler:      func(StateSaved) {},      // nop by default
		runCompletedHandler:    func(RunCompleted) {},    // nop by default
		runErrorHandler:        func(RunError) {},        // nop by default
	}

	for _, opt := range opts {
		opt(s)
	}

	go func() {
		defer close(s.done)
		for ev := range events {
			switch e := ev.(type) {
			case RunStarted:
				s.runStartedHandler(e)
			case SnapshotFetched:
				s.snapshotFetchedHandler(e)
			case FetchFailed:
				s.fetchFailedHandler(e)
			case ChangesDetected:
				s.changesHandler(e)
			case NotifyFailed:
				s.notifyFailedHandler(e)
			case StateSaved:
				s.stateSavedHandler(e)
			case RunCompleted:
				s.runCompletedHandler(e)
			case RunError:
				s.runErrorHandler(e)
			}
		}
	}()

	return func() {
		<-s.done
	}
}
