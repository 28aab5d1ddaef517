package classify

import (
	"strings"

	"github.com/gcanale/tmx/internal/artifact"
	"github.com/gcanale/tmx/internal/rawjson"
	"github.com/gcanale/tmx/internal/timeutil"
)

// buildCallLog handles entries in the synthetic call-log conversation. Only
// Text messages carrying a call-log property qualify; everything else in that
// conversation is ignored.
func (c *Context) buildCallLog(msg rawjson.Value, convID string) []*artifact.Record {
	properties := msg.Field("properties")
	if msg.Field("messageType").Str() != "Text" || !properties.Has("call-log") {
		return nil
	}

	// the call-log blob is usually a JSON object serialized into a string
	log := properties.Field("call-log").AsMap()

	rec := artifact.New(artifact.CallLog).
		SetStr("tenant_id", c.tenant(convID)).
		SetStr("conversation_id", convID).
		SetStr("sequence_id", msg.Field("sequenceId").Str()).
		SetStr("content", msg.Field("content").Str()).
		SetStr("message_id", msg.Field("id").Str()).
		SetStr("message_type", "Text").
		SetStr("properties_json", properties.JSON())
	if ts, ok := timeutil.Epoch(msg.Field("originalArrivalTime")); ok && ts != 0 {
		rec.SetEpoch("server_arrival_time", ts)
	}

	start := log.Field("startTime")
	end := log.Field("endTime")
	if start.Truthy() {
		rec.SetTime("call_start_time", timeutil.Display(start))
	}
	if end.Truthy() {
		rec.SetTime("call_end_time", timeutil.Display(end))
	}
	if start.Truthy() && end.Truthy() {
		if dur, ok := timeutil.Duration(start, end); ok {
			rec.SetStr("call_duration", dur)
		}
	}
	for _, f := range [][2]string{
		{"callDirection", "call_direction"},
		{"callType", "call_type"},
		{"callState", "call_state"},
		{"callId", "call_id"},
	} {
		if v := log.Field(f[0]); v.Truthy() {
			rec.SetStr(f[1], v.Str())
		}
	}
	if orig := log.Field("originatorParticipant"); orig.Truthy() {
		rec.SetStr("call_originator", c.formatParticipant(orig))
	}
	if target := log.Field("targetParticipant"); target.Truthy() {
		rec.SetStr("call_target", c.formatParticipant(target))
	}
	if parts := log.Field("participants"); parts.Truthy() {
		rec.SetStr("call_participants", c.formatParticipants(parts))
	}
	if list := log.Field("participantList"); list.Truthy() {
		rec.SetStr("participant_list_json", list.JSON())
	}
	return []*artifact.Record{rec}
}

// formatParticipant renders one participant object as
// "id (Contact Name) [displayName]", dropping the parts that are absent.
func (c *Context) formatParticipant(p rawjson.Value) string {
	if !p.IsMap() {
		return p.Str()
	}
	id := p.Field("id").Str()
	displayName := p.Field("displayName").Str()
	if id != "" {
		enriched := c.Contacts.Enrich(id)
		if displayName != "" && displayName != id {
			return enriched + " [" + displayName + "]"
		}
		return enriched
	}
	return displayName
}

func (c *Context) formatParticipants(parts rawjson.Value) string {
	if !parts.IsList() {
		return parts.Str()
	}
	var formatted []string
	for _, p := range parts.List() {
		if s := c.formatParticipant(p); s != "" {
			formatted = append(formatted, s)
		}
	}
	return strings.Join(formatted, "; ")
}

// buildCallActivity handles recording and transcript notification messages.
// Recordings additionally carry metadata in a small XML-ish payload inside
// the content field, scraped here tag by tag.
func (c *Context) buildCallActivity(msg rawjson.Value, convID string) []*artifact.Record {
	properties := msg.Field("properties")
	content := msg.Field("content").Str()
	msgType := msg.Field("messageType").Str()

	rec := artifact.New(artifact.CallActivity).
		SetStr("tenant_id", c.tenant(convID)).
		SetStr("conversation_id", convID).
		SetStr("sequence_id", msg.Field("sequenceId").Str()).
		SetStr("content", content).
		SetStr("message_id", msg.Field("id").Str()).
		SetStr("message_type", msgType).
		SetStr("properties_json", properties.JSON())
	if ts, ok := timeutil.Epoch(msg.Field("originalArrivalTime")); ok && ts != 0 {
		rec.SetEpoch("server_arrival_time", ts)
	}
	embeddedEpochs(rec, properties, activityTimes...)

	if msgType == "RichText/Media_CallRecording" {
		c.recordingDetails(rec, content)
	}
	return []*artifact.Record{rec}
}

func (c *Context) recordingDetails(rec *artifact.Record, content string) {
	if v, _ := tagAttr(content, "RecordingStatus", "status"); v != "" {
		rec.SetStr("recording_status", v)
	}
	if v, _ := tagAttr(content, "OriginalName", "v"); v != "" {
		rec.SetStr("recording_original_name", v)
	}
	if v, _ := tagAttr(content, "RecordingInitiatorId", "value"); v != "" {
		rec.SetStr("recording_initiator", c.Contacts.Enrich(v))
	}
	if v, _ := tagAttr(content, "RecordingTerminatorId", "value"); v != "" {
		rec.SetStr("recording_terminator", c.Contacts.Enrich(v))
	}
	for _, tag := range openTags(content, "Id") {
		if t, _ := attrIn(tag, "type"); t == "callId" {
			if v, _ := attrIn(tag, "value"); v != "" {
				rec.SetStr("call_id", v)
			}
			break
		}
	}
	if v, _ := tagAttr(content, "RecordingContent", "duration"); v != "" {
		rec.SetStr("recording_duration", v)
	}
	if v, _ := tagAttr(content, "RecordingContent", "timestamp"); v != "" {
		rec.SetTime("recording_time", timeutil.Display(rawjson.From(v)))
	}
	if v, ok := tagAttr(content, "MeetingOrganizerId", "value"); ok {
		organizer := ""
		if v != "" {
			organizer = c.Contacts.Enrich(v)
		}
		rec.SetStr("meeting_organizer", organizer)
	}
}

// openTags returns the text of every opening tag with the given name, from
// "<Name" up to the closing ">". Names are matched case sensitively because
// the recording payload uses a fixed vocabulary.
func openTags(s, name string) []string {
	var tags []string
	marker := "<" + name
	for i := 0; i < len(s); {
		j := strings.Index(s[i:], marker)
		if j < 0 {
			break
		}
		start := i + j
		rest := s[start+len(marker):]
		// reject longer tag names sharing the prefix
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest[0] != '>' && rest[0] != '/' {
			i = start + len(marker)
			continue
		}
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			break
		}
		tags = append(tags, s[start:start+len(marker)+end+1])
		i = start + len(marker) + end + 1
	}
	return tags
}

// tagAttr returns the given attribute of the first matching opening tag.
func tagAttr(s, name, attr string) (string, bool) {
	for _, tag := range openTags(s, name) {
		if v, ok := attrIn(tag, attr); ok {
			return v, true
		}
		break
	}
	return "", false
}

func attrIn(tag, name string) (string, bool) {
	marker := name + `="`
	i := strings.Index(tag, marker)
	if i < 0 {
		return "", false
	}
	rest := tag[i+len(marker):]
	j := strings.IndexByte(rest, '"')
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}
