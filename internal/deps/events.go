package deps

import "sync"

// EventType names a Manager lifecycle event.
type EventType string

const (
	EventInitialized           EventType = "initialized"
	EventStatusUpdated         EventType = "statusUpdated"
	EventInstallStarted        EventType = "installStarted"
	EventDownloadProgress      EventType = "downloadProgress"
	EventInstallCompleted      EventType = "installCompleted"
	EventInstallFailed         EventType = "installFailed"
	EventDependenciesCleanedUp EventType = "dependenciesCleanedUp"
)

// Event is delivered to listeners. Only the fields relevant to Type are set:
//
//	statusUpdated     Status
//	installStarted    Dependency
//	downloadProgress  Dependency, Progress
//	installCompleted  Dependency
//	installFailed     Dependency, Err
type Event struct {
	Type       EventType
	Dependency Name
	Status     map[Name]Status
	Progress   Progress
	Err        error
}

// Listener receives events synchronously on the emitting goroutine, in
// emission order. Listeners must not block for long.
type Listener func(Event)

type emitter struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
	order     []int
}

// subscribe registers l and returns a func removing it.
func (e *emitter) subscribe(l Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listeners == nil {
		e.listeners = make(map[int]Listener)
	}
	id := e.nextID
	e.nextID++
	e.listeners[id] = l
	e.order = append(e.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.listeners, id)
			for i, v := range e.order {
				if v == id {
					e.order = append(e.order[:i], e.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.RLock()
	ls := make([]Listener, 0, len(e.order))
	for _, id := range e.order {
		ls = append(ls, e.listeners[id])
	}
	e.mu.RUnlock()

	for _, l := range ls {
		l(ev)
	}
}
