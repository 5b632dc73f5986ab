package listing

import "strings"

// EventType is a pointer or scroll event delivered to an overlay.
type EventType string

const (
	PointerDown EventType = "pointerdown"
	Wheel       EventType = "wheel"
	Scroll      EventType = "scroll"
)

// Event is a UI event. Target is the slash-separated id path of the element
// the event happened on, e.g. "colmenu/list/item-3".
type Event struct {
	Type   EventType
	Target string
}

// Reaction tells the caller what to do with an event.
type Reaction struct {
	Closed          bool // the overlay closed because of the event
	StopPropagation bool // the page behind the overlay must not scroll
}

// Overlay is the open/closed state machine of a floating panel.
//
//	Closed --Open--> Open
//	Open   --Close | pointerdown outside | scroll outside--> Closed
//
// While open, wheel and scroll events inside the panel are contained.
type Overlay struct {
	root     string
	open     bool
	onChange func(open bool)
}

// NewOverlay creates a closed overlay rooted at the element id root.
func NewOverlay(root string) *Overlay {
	return &Overlay{root: strings.TrimSuffix(root, "/")}
}

// Root returns the overlay's root element id.
func (o *Overlay) Root() string {
	return o.root
}

// OnChange sets the function called when the overlay opens or closes.
func (o *Overlay) OnChange(fn func(open bool)) {
	o.onChange = fn
}

// IsOpen reports whether the overlay is open.
func (o *Overlay) IsOpen() bool {
	return o.open
}

// Open opens the overlay.
func (o *Overlay) Open() {
	o.set(true)
}

// Close closes the overlay.
func (o *Overlay) Close() {
	o.set(false)
}

// Toggle flips the overlay.
func (o *Overlay) Toggle() {
	o.set(!o.open)
}

// Contains reports whether target is the root or inside its subtree.
func (o *Overlay) Contains(target string) bool {
	return target == o.root || strings.HasPrefix(target, o.root+"/")
}

// Handle applies an event. Closed overlays ignore everything.
func (o *Overlay) Handle(ev Event) Reaction {
	if !o.open {
		return Reaction{}
	}
	inside := o.Contains(ev.Target)

	switch ev.Type {
	case PointerDown:
		if !inside {
			o.set(false)
			return Reaction{Closed: true}
		}
	case Wheel:
		if inside {
			return Reaction{StopPropagation: true}
		}
	case Scroll:
		if inside {
			return Reaction{StopPropagation: true}
		}
		o.set(false)
		return Reaction{Closed: true}
	}
	return Reaction{}
}

func (o *Overlay) set(open bool) {
	if o.open == open {
		return
	}
	o.open = open
	if o.onChange != nil {
		o.onChange(open)
	}
}
