package classify

import (
	"encoding/json"
	"strings"

	"github.com/gcanale/tmx/internal/artifact"
	"github.com/gcanale/tmx/internal/rawjson"
	"github.com/gcanale/tmx/internal/timeutil"
)

// buildMeetingEvent handles Event/Call records: meeting start and end
// notifications carrying the roster and schedule in properties.
func (c *Context) buildMeetingEvent(msg rawjson.Value, convID string) []*artifact.Record {
	properties := msg.Field("properties")

	rec := artifact.New(artifact.MeetingEvent).
		SetStr("tenant_id", c.tenant(convID)).
		SetStr("conversation_id", convID).
		SetStr("sequence_id", msg.Field("sequenceId").Str()).
		SetStr("content", msg.Field("content").Str()).
		SetStr("message_id", msg.Field("id").Str()).
		SetStr("creator", c.Contacts.Enrich(msg.Field("creator").Str())).
		SetStr("message_type", msg.Field("messageType").Str()).
		SetStr("properties_json", properties.JSON())
	if ts, ok := timeutil.Epoch(msg.Field("originalArrivalTime")); ok && ts != 0 {
		rec.SetEpoch("server_arrival_time", ts)
	}
	embeddedEpochs(rec, properties, activityTimes...)

	if participants := properties.Field("participants"); participants.Truthy() {
		if s := c.enrichParticipants(participants); s != "" {
			rec.SetStr("meeting_participants", s)
		}
	}
	if upn := properties.Field("organizerUpn"); upn.Truthy() {
		rec.SetStr("meeting_organizer_upn", upn.Str())
	}
	if mt := properties.Field("meetingType"); mt.Truthy() {
		rec.SetStr("meeting_type", mt.Str())
	}
	if start := properties.Field("startTime"); start.Truthy() {
		rec.SetTime("meeting_start_time", timeutil.Display(start))
	}
	if end := properties.Field("endTime"); end.Truthy() {
		rec.SetTime("meeting_end_time", timeutil.Display(end))
	}
	return []*artifact.Record{rec}
}

// enrichParticipants re-serializes the roster with contact names folded in.
// List elements that are objects gain an enriched_name member when their
// identifier resolves; string elements are rewritten as "id (Name)". An
// object roster gains a <key>_enriched_name member per resolvable ID field.
// Without a populated directory the roster passes through untouched.
func (c *Context) enrichParticipants(participants rawjson.Value) string {
	if c.Contacts.Len() == 0 {
		return participants.JSON()
	}

	var enriched any
	switch {
	case participants.IsList():
		var list []any
		for _, p := range participants.List() {
			list = append(list, c.enrichRosterEntry(p))
		}
		enriched = list
	case participants.IsMap():
		obj := make(map[string]any)
		for _, key := range participants.Keys() {
			obj[key] = participants.Field(key).Raw()
		}
		lower := strings.ToLower
		for _, key := range participants.Keys() {
			k := lower(key)
			if !strings.Contains(k, "id") && !strings.Contains(k, "participant") &&
				!strings.Contains(k, "user") && !strings.Contains(k, "mri") {
				continue
			}
			if name, ok := c.Contacts.Lookup(participants.Field(key).Str()); ok {
				obj[key+"_enriched_name"] = name
			}
		}
		enriched = obj
	default:
		return participants.JSON()
	}

	out, err := json.Marshal(enriched)
	if err != nil {
		return participants.JSON()
	}
	return string(out)
}

func (c *Context) enrichRosterEntry(p rawjson.Value) any {
	if p.IsMap() {
		obj := make(map[string]any)
		for _, key := range p.Keys() {
			obj[key] = p.Field(key).Raw()
		}
		id := p.Field("id").Str()
		if id == "" {
			id = p.Field("mri").Str()
		}
		if id == "" {
			id = p.Field("participantId").Str()
		}
		if id != "" {
			if name, ok := c.Contacts.Lookup(id); ok {
				obj["enriched_name"] = name
			}
		}
		return obj
	}
	if s := p.Text(); s != "" {
		if name, ok := c.Contacts.Lookup(s); ok {
			return s + " (" + name + ")"
		}
		return s
	}
	return p.Raw()
}
