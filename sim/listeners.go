// Ordered listener sets for VM lifecycle events. Registration order is
// dispatch order; the set is snapshotted before dispatch so callbacks
// may register or remove listeners without breaking iteration.

package sim

// VmEventInfo carries the data every VM lifecycle event exposes.
type VmEventInfo struct {
	Time float64
	Vm   *Vm
	Host Host
}

// VmListener receives VM lifecycle notifications. Implementations are
// compared by identity when removed, so register pointer values.
type VmListener interface {
	Update(info VmEventInfo)
}

type vmListenerFunc struct {
	fn func(VmEventInfo)
}

func (l *vmListenerFunc) Update(info VmEventInfo) { l.fn(info) }

// VmListenerFunc adapts a function to the VmListener interface. Each
// call returns a distinct identity; keep the returned value to remove
// the listener later.
func VmListenerFunc(fn func(VmEventInfo)) VmListener {
	return &vmListenerFunc{fn: fn}
}

// listenerSet is an ordered collection of listeners. Nil registration
// and removal are safe no-ops.
type listenerSet struct {
	listeners []VmListener
}

// Add registers a listener at the end of the dispatch order. Adding nil
// is a no-op.
func (s *listenerSet) Add(l VmListener) {
	if l == nil {
		return
	}
	s.listeners = append(s.listeners, l)
}

// Remove unregisters the exact listener, reporting whether it was
// present. Removing nil or an unknown listener returns false.
func (s *listenerSet) Remove(l VmListener) bool {
	if l == nil {
		return false
	}
	for i, registered := range s.listeners {
		if registered == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Notify invokes every registered listener in registration order. The
// set is snapshotted first, so mutation from inside a callback affects
// only later notifications.
func (s *listenerSet) Notify(info VmEventInfo) {
	snapshot := append([]VmListener(nil), s.listeners...)
	for _, l := range snapshot {
		l.Update(info)
	}
}

func (s *listenerSet) Len() int { return len(s.listeners) }
