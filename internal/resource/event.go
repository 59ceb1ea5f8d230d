package resource

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// EventType is the globally unique name of an event, e.g. "COUPONS_REQUEST_GET".
type EventType string

// Kind classifies an event independent of its resource.
type Kind int

const (
	KindRequest Kind = iota + 1
	KindSuccess
	KindFailure
	KindClear
	// KindEdit events describe edit-session transitions. They reach observers only.
	KindEdit
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindSuccess:
		return "success"
	case KindFailure:
		return "failure"
	case KindClear:
		return "clear"
	case KindEdit:
		return "edit"
	default:
		return "unknown"
	}
}

// Event is a discrete notification consumed by reducers and observers.
type Event struct {
	ID       ulid.ULID
	Type     EventType
	Kind     Kind
	Resource string
	Subject  string
	Op       Op
	// Seq ties a resolution event to the request that produced it.
	Seq       uint64
	NoSpinner bool
	Payload   any
	Err       error
	// Stale is set on resolution events that lost to a later request. The
	// event is still delivered to observers but never reaches the reducer.
	Stale bool
}

// EventSet lists every event type derived from one descriptor.
type EventSet struct {
	Request map[Op]EventType
	Success map[Op]EventType
	Failure map[Op]EventType
	Clear   EventType
}

// Edit-session actions, see EditEvent.
const (
	EditStart         = "START_EDIT"
	EditUpdate        = "UPDATE_EDIT"
	EditSetVisibility = "SET_EDIT_VISIBILITY"
	EditSave          = "SAVE_EDIT"
	EditClear         = "CLEAR_EDIT"
)

var prefixReplacer = strings.NewReplacer("-", "_", " ", "_", ".", "_")

func prefix(name string) string {
	return strings.ToUpper(prefixReplacer.Replace(strings.TrimSpace(name)))
}

// RequestEvent returns "<RESOURCE>_REQUEST_<OP>".
func RequestEvent(name string, op Op) EventType {
	return EventType(prefix(name) + "_REQUEST_" + string(op))
}

// SuccessEvent returns "<RESOURCE>_<OP>_SUCCESS".
func SuccessEvent(name string, op Op) EventType {
	return EventType(prefix(name) + "_" + string(op) + "_SUCCESS")
}

// FailureEvent returns "<RESOURCE>_<OP>_FAILURE".
func FailureEvent(name string, op Op) EventType {
	return EventType(prefix(name) + "_" + string(op) + "_FAILURE")
}

// ClearEvent returns "<RESOURCE>_CLEAR".
func ClearEvent(name string) EventType {
	return EventType(prefix(name) + "_CLEAR")
}

// EditEvent returns "<RESOURCE>_<ACTION>" for an edit-session action.
func EditEvent(name, action string) EventType {
	return EventType(prefix(name) + "_" + action)
}

func typeFor(e Event) EventType {
	switch e.Kind {
	case KindRequest:
		return RequestEvent(e.Resource, e.Op)
	case KindSuccess:
		return SuccessEvent(e.Resource, e.Op)
	case KindFailure:
		return FailureEvent(e.Resource, e.Op)
	case KindClear:
		return ClearEvent(e.Resource)
	default:
		return e.Type
	}
}
