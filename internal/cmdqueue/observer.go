package cmdqueue

// CommandInfo is what an Observer sees of a command about to execute.
type CommandInfo struct {
	ID           CommandID
	DebugID      uint32
	CallbackID   uint32
	Notify       bool
	ReturnsValue bool

	// Position is the command's offset within its buffer.
	Position int
}

// Observer is invoked by the executor before each command runs.
// It runs on the executing goroutine and must not block.
type Observer interface {
	BeforeCommand(info CommandInfo)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(info CommandInfo)

// BeforeCommand calls f(info).
func (f ObserverFunc) BeforeCommand(info CommandInfo) { f(info) }

type multiObserver []Observer

func (m multiObserver) BeforeCommand(info CommandInfo) {
	for _, o := range m {
		o.BeforeCommand(info)
	}
}

// Observers combines observers, called in argument order. Nil entries are
// skipped; returns nil when nothing remains.
func Observers(obs ...Observer) Observer {
	var out multiObserver
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}
