// Package classify decides which domain entity a raw message-like record
// represents and builds the typed records it yields. One raw record produces
// at most one primary entity plus any number of attachment, mention, and
// reaction side records.
package classify

import (
	"github.com/gcanale/tmx/internal/artifact"
	"github.com/gcanale/tmx/internal/directory"
	"github.com/gcanale/tmx/internal/markup"
	"github.com/gcanale/tmx/internal/rawjson"
	"github.com/gcanale/tmx/internal/timeutil"
)

// The synthetic conversation that Teams files call logs under.
const callLogConversation = "48:calllogs"

// Context is the pipeline-scoped shared state consulted by every builder:
// the conversation-to-tenant mapping built from thread records and the
// contact directory built from people records. It is deliberately not a
// package-level global; the driver owns one per run.
type Context struct {
	Tenants  map[string]string
	Contacts *directory.Directory

	render *markup.Renderer
}

func NewContext() *Context {
	contacts := directory.New()
	return &Context{
		Tenants:  make(map[string]string),
		Contacts: contacts,
		render:   markup.NewRenderer(contacts),
	}
}

func (c *Context) tenant(convID string) string {
	return c.Tenants[convID]
}

// ProcessMessage classifies one message-like record and returns all records
// it yields. The reaction pass runs for every record regardless of the
// primary classification; a record matching no known kind still contributes
// its reactions.
func (c *Context) ProcessMessage(msg rawjson.Value, convID string) []*artifact.Record {
	var out []*artifact.Record

	msgType := msg.Field("messageType").Str()
	switch {
	case convID == callLogConversation:
		out = c.buildCallLog(msg, convID)
	case msgType == "RichText/Media_CallRecording" || msgType == "RichText/Media_CallTranscript":
		out = c.buildCallActivity(msg, convID)
	case msgType == "Event/Call":
		out = c.buildMeetingEvent(msg, convID)
	case msgType == "Text" || msgType == "RichText/Html":
		out = c.buildMessage(msg, convID)
	}

	return append(out, c.buildReactions(msg, convID)...)
}

// buildReactions reads the nested emotions structure and emits one reaction
// record per (reaction type, user) pair.
func (c *Context) buildReactions(msg rawjson.Value, convID string) []*artifact.Record {
	properties := msg.Field("properties")
	if !properties.IsMap() {
		return nil
	}

	msgID := msg.Field("id").Str()
	seqID := msg.Field("sequenceId").Str()
	tenantID := c.tenant(convID)

	var out []*artifact.Record
	for _, v := range properties.Field("emotions").Field("values").List() {
		reactionType := v.Field("key").Str()
		for _, u := range v.Field("users").Field("values").List() {
			mri := u.Field("mri").Str()
			rec := artifact.New(artifact.Reaction).
				SetStr("tenant_id", tenantID).
				SetStr("message_id", msgID).
				SetStr("sequence_id", seqID).
				SetStr("reaction_type", reactionType).
				SetStr("reaction_sender", c.Contacts.Enrich(mri))
			if ts, ok := timeutil.Epoch(u.Field("time")); ok && ts != 0 {
				rec.SetEpoch("reaction_time", ts)
			}
			out = append(out, rec)
		}
	}
	return out
}

// embeddedEpochs copies the known side-channel timestamps out of properties
// onto the record, skipping any that are absent or unparseable.
func embeddedEpochs(rec *artifact.Record, properties rawjson.Value, keys ...[2]string) {
	for _, k := range keys {
		if !properties.Has(k[0]) {
			continue
		}
		if ts, ok := timeutil.Epoch(properties.Field(k[0])); ok && ts != 0 {
			rec.SetEpoch(k[1], ts)
		}
	}
}

var messageTimes = [][2]string{
	{"edittime", "edit_time"},
	{"composetime", "compose_time"},
	{"deletetime", "delete_time"},
	{"drafttimestamp", "draft_time"},
}

var activityTimes = [][2]string{
	{"edittime", "edit_time"},
	{"composetime", "compose_time"},
	{"deletetime", "delete_time"},
}
