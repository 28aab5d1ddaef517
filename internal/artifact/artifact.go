// Package artifact defines the typed output records produced by the
// extraction pipeline: a flat list of named attributes tagged with an entity
// kind, ready for the persistence sink.
package artifact

// Kind tags the domain entity a record represents.
type Kind string

const (
	Message      Kind = "message"
	Attachment   Kind = "attachment"
	CallLog      Kind = "call_log"
	CallActivity Kind = "call_activity"
	MeetingEvent Kind = "meeting_event"
	Thread       Kind = "thread"
	GroupChat    Kind = "group_chat"
	PrivateChat  Kind = "private_chat"
	TeamsChannel Kind = "teams_channel"
	ThreadMember Kind = "thread_member"
	Contact      Kind = "contact"
	Mention      Kind = "mention"
	Reaction     Kind = "reaction"
)

// Kinds lists every entity kind, in display order.
var Kinds = []Kind{
	Message, Attachment, CallLog, CallActivity, MeetingEvent,
	Thread, GroupChat, PrivateChat, TeamsChannel, ThreadMember,
	Contact, Mention, Reaction,
}

// AttrType is the logical type of an attribute value.
type AttrType string

const (
	TypeString AttrType = "string" // plain text
	TypeEpoch  AttrType = "epoch"  // integer seconds since the Unix epoch
	TypeTime   AttrType = "time"   // pre-formatted display timestamp
)

// Attr is one named attribute. Str holds the value for TypeString and
// TypeTime; Epoch holds it for TypeEpoch.
type Attr struct {
	Name  string
	Type  AttrType
	Str   string
	Epoch int64
}

// Record is one typed output record. Attributes keep insertion order so
// emitted output is stable. A record never carries a null attribute: callers
// omit attributes instead of setting empty optional ones.
type Record struct {
	Kind  Kind
	Attrs []Attr
}

func New(kind Kind) *Record {
	return &Record{Kind: kind}
}

// SetStr appends a string attribute. Empty strings are allowed: several
// reference fields are always present even when blank.
func (r *Record) SetStr(name, val string) *Record {
	r.Attrs = append(r.Attrs, Attr{Name: name, Type: TypeString, Str: val})
	return r
}

// SetEpoch appends an epoch-seconds attribute.
func (r *Record) SetEpoch(name string, secs int64) *Record {
	r.Attrs = append(r.Attrs, Attr{Name: name, Type: TypeEpoch, Epoch: secs})
	return r
}

// SetTime appends a formatted display-timestamp attribute.
func (r *Record) SetTime(name, val string) *Record {
	r.Attrs = append(r.Attrs, Attr{Name: name, Type: TypeTime, Str: val})
	return r
}

// Get returns the first attribute with the given name.
func (r *Record) Get(name string) (Attr, bool) {
	for _, a := range r.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

// Str returns the string value of the named attribute, or "".
func (r *Record) Str(name string) string {
	a, _ := r.Get(name)
	return a.Str
}

// Content returns the record's reconstructed content attribute, or "".
// The sink indexes this field for full-text search.
func (r *Record) Content() string {
	return r.Str("content")
}
