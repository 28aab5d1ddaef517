package classify

import (
	"strings"
	"testing"

	"github.com/gcanale/tmx/internal/artifact"
	"github.com/gcanale/tmx/internal/rawjson"
)

func parse(t *testing.T, doc string) rawjson.Value {
	t.Helper()
	v, err := rawjson.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return v
}

func kindsOf(recs []*artifact.Record) []artifact.Kind {
	var kinds []artifact.Kind
	for _, r := range recs {
		kinds = append(kinds, r.Kind)
	}
	return kinds
}

func TestProcessMessageRouting(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		convID string
		want   []artifact.Kind
	}{
		{
			name:   "plain text",
			doc:    `{"messageType":"Text","id":"m1","content":"hello"}`,
			convID: "19:abc@thread.v2",
			want:   []artifact.Kind{artifact.Message},
		},
		{
			name:   "rich html",
			doc:    `{"messageType":"RichText/Html","id":"m2","content":"<p>hi</p>"}`,
			convID: "19:abc@thread.v2",
			want:   []artifact.Kind{artifact.Message},
		},
		{
			name:   "call recording",
			doc:    `{"messageType":"RichText/Media_CallRecording","id":"m3"}`,
			convID: "19:abc@thread.v2",
			want:   []artifact.Kind{artifact.CallActivity},
		},
		{
			name:   "call transcript",
			doc:    `{"messageType":"RichText/Media_CallTranscript","id":"m4"}`,
			convID: "19:abc@thread.v2",
			want:   []artifact.Kind{artifact.CallActivity},
		},
		{
			name:   "meeting event",
			doc:    `{"messageType":"Event/Call","id":"m5"}`,
			convID: "19:abc@thread.v2",
			want:   []artifact.Kind{artifact.MeetingEvent},
		},
		{
			name:   "call log conversation",
			doc:    `{"messageType":"Text","id":"m6","properties":{"call-log":"{}"}}`,
			convID: "48:calllogs",
			want:   []artifact.Kind{artifact.CallLog},
		},
		{
			name:   "call log conversation without call-log property",
			doc:    `{"messageType":"Text","id":"m7"}`,
			convID: "48:calllogs",
			want:   nil,
		},
		{
			name:   "unrecognized type",
			doc:    `{"messageType":"ThreadActivity/AddMember","id":"m8"}`,
			convID: "19:abc@thread.v2",
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewContext()
			got := kindsOf(ctx.ProcessMessage(parse(t, tt.doc), tt.convID))
			if len(got) != len(tt.want) {
				t.Fatalf("kinds = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("kinds = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestReactionsAlwaysRun(t *testing.T) {
	// reactions must be extracted even when the message type matches nothing
	doc := `{
		"messageType": "ThreadActivity/AddMember",
		"id": "m1",
		"sequenceId": 7,
		"properties": {
			"emotions": {"values": [
				{"key": "like", "users": {"values": [
					{"mri": "8:alice", "time": 1709641845000},
					{"mri": "8:bob", "time": 1709641900000}
				]}},
				{"key": "heart", "users": {"values": [
					{"mri": "8:carol"}
				]}}
			]}
		}
	}`
	ctx := NewContext()
	ctx.Contacts.Record("8:alice", "Alice Smith")

	recs := ctx.ProcessMessage(parse(t, doc), "19:abc@thread.v2")
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	for _, r := range recs {
		if r.Kind != artifact.Reaction {
			t.Fatalf("kind = %q, want reaction", r.Kind)
		}
	}
	first := recs[0]
	if got := first.Str("reaction_type"); got != "like" {
		t.Errorf("reaction_type = %q, want like", got)
	}
	if got := first.Str("reaction_sender"); got != "8:alice (Alice Smith)" {
		t.Errorf("reaction_sender = %q", got)
	}
	if ts, ok := first.Get("reaction_time"); !ok || ts.Epoch != 1709641845 {
		t.Errorf("reaction_time = %+v, want 1709641845", ts)
	}
	// no time given: attribute omitted entirely
	if _, ok := recs[2].Get("reaction_time"); ok {
		t.Errorf("reaction without time should omit the attribute")
	}
	if got := recs[2].Str("reaction_sender"); got != "8:carol" {
		t.Errorf("unknown sender should pass through, got %q", got)
	}
}

func TestBuildMessageAttributes(t *testing.T) {
	doc := `{
		"messageType": "Text",
		"id": "1618330000000",
		"sequenceId": 42,
		"creator": "8:alice",
		"imDisplayName": "Alice",
		"content": "lunch?",
		"originalArrivalTime": "2024-03-05T12:30:45.123Z"
	}`
	ctx := NewContext()
	ctx.Contacts.Record("8:alice", "Alice Smith")
	ctx.Tenants["19:abc@thread.v2"] = "tenant-1"

	recs := ctx.ProcessMessage(parse(t, doc), "19:abc@thread.v2")
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	msg := recs[0]
	for name, want := range map[string]string{
		"tenant_id":       "tenant-1",
		"conversation_id": "19:abc@thread.v2",
		"message_id":      "1618330000000",
		"sequence_id":     "42",
		"creator":         "8:alice (Alice Smith)",
		"display_name":    "Alice",
		"content":         "lunch?",
		"message_type":    "Text",
		"has_attachment":  "no",
	} {
		if got := msg.Str(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if a, ok := msg.Get("server_arrival_time"); !ok || a.Epoch != 1709641845 {
		t.Errorf("server_arrival_time = %+v, want 1709641845", a)
	}
}

func TestBuildMessageRendersHTML(t *testing.T) {
	doc := `{
		"messageType": "RichText/Html",
		"id": "m1",
		"content": "<p>see <a href=\"https://example.com/doc\">the doc</a></p>",
		"properties": {"links": "[{\"url\":\"https://example.com/doc\"}]"}
	}`
	ctx := NewContext()
	recs := ctx.ProcessMessage(parse(t, doc), "19:x@thread.v2")
	if len(recs) != 2 {
		t.Fatalf("got %d records, want message plus link attachment", len(recs))
	}
	content := recs[0].Content()
	if !strings.Contains(content, "https://example.com/doc") {
		t.Errorf("content %q should carry the link target", content)
	}
	if strings.Contains(content, "<a") || strings.Contains(content, "</p>") {
		t.Errorf("content %q should not carry tags", content)
	}
	att := recs[1]
	if att.Kind != artifact.Attachment {
		t.Fatalf("kind = %q, want attachment", att.Kind)
	}
	if got := att.Str("attachment_url"); got != "https://example.com/doc" {
		t.Errorf("attachment_url = %q", got)
	}
	if got := att.Str("attachment_type"); got != "link" {
		t.Errorf("attachment_type = %q, want link", got)
	}
}

func TestBuildMessageAMSImage(t *testing.T) {
	doc := `{
		"messageType": "RichText/Html",
		"id": "m1",
		"content": "<img src=\"https://media.example.com/AMSImage/v1/x\">"
	}`
	ctx := NewContext()
	recs := ctx.ProcessMessage(parse(t, doc), "19:x@thread.v2")
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	// the image attachment is emitted ahead of the message record
	if recs[0].Kind != artifact.Attachment || recs[1].Kind != artifact.Message {
		t.Fatalf("kinds = %v", kindsOf(recs))
	}
	if got := recs[0].Str("attachment_name"); got != "AMSImage" {
		t.Errorf("attachment_name = %q", got)
	}
	if got := recs[0].Str("attachment_type"); got != "image" {
		t.Errorf("attachment_type = %q", got)
	}
}

func TestBuildMessageFilesAndMentions(t *testing.T) {
	doc := `{
		"messageType": "Text",
		"id": "m1",
		"content": "",
		"properties": {
			"files": "[{\"fileName\":\"report.docx\",\"fileType\":\"docx\"}]",
			"mentions": "[{\"mri\":\"8:bob\",\"mentionType\":\"person\",\"displayName\":\"Bob\"},{\"mri\":\"8:bob\",\"mentionType\":\"person\",\"displayName\":\"Jones\"}]"
		}
	}`
	ctx := NewContext()
	recs := ctx.ProcessMessage(parse(t, doc), "19:x@thread.v2")
	if len(recs) != 3 {
		t.Fatalf("got %d records, want message, file, mention", len(recs))
	}
	msg := recs[0]
	if got := msg.Content(); got != "report.docx" {
		t.Errorf("empty content should fall back to file names, got %q", got)
	}
	if got := msg.Str("has_attachment"); got != "yes" {
		t.Errorf("has_attachment = %q, want yes", got)
	}
	file := recs[1]
	if got := file.Str("attachment_name"); got != "report.docx" {
		t.Errorf("attachment_name = %q", got)
	}
	mention := recs[2]
	if mention.Kind != artifact.Mention {
		t.Fatalf("kind = %q, want mention", mention.Kind)
	}
	if got := mention.Str("mention_display_name"); got != "Bob Jones" {
		t.Errorf("merged mention display name = %q, want %q", got, "Bob Jones")
	}
}

func TestBuildCallLog(t *testing.T) {
	doc := `{
		"messageType": "Text",
		"id": "m1",
		"sequenceId": 3,
		"content": "call",
		"properties": {
			"call-log": "{\"startTime\":\"2024-03-05T12:30:45Z\",\"endTime\":\"2024-03-05T12:40:45Z\",\"callDirection\":\"incoming\",\"callType\":\"audio\",\"callState\":\"missed\",\"callId\":\"c-1\",\"originatorParticipant\":{\"id\":\"8:alice\",\"displayName\":\"Ally\"},\"targetParticipant\":{\"id\":\"8:bob\"},\"participants\":[{\"id\":\"8:alice\"},{\"id\":\"8:bob\"}],\"participantList\":[\"8:alice\",\"8:bob\"]}"
		}
	}`
	ctx := NewContext()
	ctx.Contacts.Record("8:alice", "Alice Smith")

	recs := ctx.ProcessMessage(parse(t, doc), "48:calllogs")
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	log := recs[0]
	if log.Kind != artifact.CallLog {
		t.Fatalf("kind = %q", log.Kind)
	}
	for name, want := range map[string]string{
		"call_start_time":  "2024-03-05 12:30:45",
		"call_end_time":    "2024-03-05 12:40:45",
		"call_duration":    "00:10:00",
		"call_direction":   "incoming",
		"call_type":        "audio",
		"call_state":       "missed",
		"call_id":          "c-1",
		"call_originator":  "8:alice (Alice Smith) [Ally]",
		"call_target":      "8:bob",
		"call_participants": "8:alice (Alice Smith); 8:bob",
	} {
		if got := log.Str(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if got := log.Str("participant_list_json"); got != `["8:alice","8:bob"]` {
		t.Errorf("participant_list_json = %q", got)
	}
}

func TestBuildCallLogMalformedBlob(t *testing.T) {
	doc := `{
		"messageType": "Text",
		"id": "m1",
		"properties": {"call-log": "{not json"}
	}`
	ctx := NewContext()
	recs := ctx.ProcessMessage(parse(t, doc), "48:calllogs")
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	// the blob is treated as empty; the record still carries the basics
	if got := recs[0].Str("message_id"); got != "m1" {
		t.Errorf("message_id = %q", got)
	}
	if got := recs[0].Str("call_direction"); got != "" {
		t.Errorf("call_direction = %q, want empty", got)
	}
}

func TestBuildCallActivityRecording(t *testing.T) {
	doc := `{
		"messageType": "RichText/Media_CallRecording",
		"id": "m1",
		"content": "<URIObject><RecordingStatus status=\"Success\"/><OriginalName v=\"standup.mp4\"/><RecordingInitiatorId value=\"8:alice\"/><Id type=\"callId\" value=\"c-9\"/><RecordingContent duration=\"125\" timestamp=\"1709641845000\"/></URIObject>"
	}`
	ctx := NewContext()
	ctx.Contacts.Record("8:alice", "Alice Smith")

	recs := ctx.ProcessMessage(parse(t, doc), "19:x@thread.v2")
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	act := recs[0]
	for name, want := range map[string]string{
		"recording_status":        "Success",
		"recording_original_name": "standup.mp4",
		"recording_initiator":     "8:alice (Alice Smith)",
		"call_id":                 "c-9",
		"recording_duration":      "125",
		"recording_time":          "2024-03-05 12:30:45",
	} {
		if got := act.Str(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if got := act.Str("recording_terminator"); got != "" {
		t.Errorf("recording_terminator = %q, want absent", got)
	}
}

func TestBuildCallActivityTranscriptSkipsScrape(t *testing.T) {
	doc := `{
		"messageType": "RichText/Media_CallTranscript",
		"id": "m1",
		"content": "<RecordingStatus status=\"Success\"/>"
	}`
	ctx := NewContext()
	recs := ctx.ProcessMessage(parse(t, doc), "19:x@thread.v2")
	if got := recs[0].Str("recording_status"); got != "" {
		t.Errorf("transcripts must not scrape recording metadata, got %q", got)
	}
}

func TestBuildMeetingEvent(t *testing.T) {
	doc := `{
		"messageType": "Event/Call",
		"id": "m1",
		"creator": "8:alice",
		"properties": {
			"participants": [{"id": "8:alice", "role": "organizer"}, "8:bob"],
			"organizerUpn": "alice@example.com",
			"meetingType": "Scheduled",
			"startTime": "2024-03-05T12:30:45Z",
			"endTime": 1709642745
		}
	}`
	ctx := NewContext()
	ctx.Contacts.Record("8:alice", "Alice Smith")

	recs := ctx.ProcessMessage(parse(t, doc), "19:x@thread.v2")
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	ev := recs[0]
	if ev.Kind != artifact.MeetingEvent {
		t.Fatalf("kind = %q", ev.Kind)
	}
	for name, want := range map[string]string{
		"creator":               "8:alice (Alice Smith)",
		"meeting_organizer_upn": "alice@example.com",
		"meeting_type":          "Scheduled",
		"meeting_start_time":    "2024-03-05 12:30:45",
		"meeting_end_time":      "2024-03-05 12:45:45",
	} {
		if got := ev.Str(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	roster := ev.Str("meeting_participants")
	if !strings.Contains(roster, `"enriched_name":"Alice Smith"`) {
		t.Errorf("roster %q should carry the enriched object entry", roster)
	}
	if !strings.Contains(roster, `"8:bob"`) {
		t.Errorf("roster %q should keep the unresolved string entry", roster)
	}
}

func TestProcessThreadKinds(t *testing.T) {
	tests := []struct {
		id   string
		want artifact.Kind
	}{
		{"19:abc@thread.v2", artifact.GroupChat},
		{"19:abc@unq.gbl.spaces", artifact.PrivateChat},
		{"19:abc@thread.tacv2", artifact.TeamsChannel},
		{"19:abc@something.else", artifact.Thread},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			ctx := NewContext()
			rec := parse(t, `{"tenant_id":"t-1","value":{"value":{"id":"`+tt.id+`","type":"Thread","teamId":"team-7"}}}`)
			recs := ctx.ProcessThread(rec)
			if len(recs) != 1 {
				t.Fatalf("got %d records, want 1", len(recs))
			}
			if recs[0].Kind != tt.want {
				t.Errorf("kind = %q, want %q", recs[0].Kind, tt.want)
			}
			teamID := recs[0].Str("team_id")
			if tt.want == artifact.TeamsChannel && teamID != "team-7" {
				t.Errorf("team_id = %q, want team-7", teamID)
			}
			if tt.want != artifact.TeamsChannel && teamID != "" {
				t.Errorf("team_id = %q, want absent for %q", teamID, tt.want)
			}
			if ctx.Tenants[tt.id] != "t-1" {
				t.Errorf("tenant map not recorded for %q", tt.id)
			}
		})
	}
}

func TestProcessThreadExtrasAndMembers(t *testing.T) {
	doc := `{
		"tenant_id": "t-1",
		"value": {"value": {
			"id": "19:abc@thread.v2",
			"type": "Chat",
			"threadProperties": {
				"title": "Planning",
				"description": "weekly sync",
				"creator": "8:alice",
				"createdAt": "1709641845000"
			},
			"properties": {"hasMessageDraft": false},
			"rosterSummary": {"memberCount": 2},
			"members": [{"id": "8:alice"}, {"mri": "8:bob"}, {"role": "guest"}]
		}}
	}`
	ctx := NewContext()
	ctx.Contacts.Record("8:alice", "Alice Smith")

	recs := ctx.ProcessThread(parse(t, doc))
	if len(recs) != 3 {
		t.Fatalf("got %d records, want thread plus two members", len(recs))
	}
	th := recs[0]
	for name, want := range map[string]string{
		"topic":        "Planning",
		"description":  "weekly sync",
		"creator":      "8:alice (Alice Smith)",
		"created_at":   "2024-03-05 12:30:45",
		"has_draft":    "False",
		"member_count": "2",
	} {
		if got := th.Str(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if got := recs[1].Str("member_id"); got != "8:alice (Alice Smith)" {
		t.Errorf("member_id = %q", got)
	}
	if got := recs[2].Str("member_id"); got != "8:bob" {
		t.Errorf("member_id = %q", got)
	}
}

func TestProcessContact(t *testing.T) {
	doc := `{"value": {
		"mri": "8:alice",
		"displayname": "Alice Smith",
		"email": "alice@example.com",
		"userType": "Member",
		"givenName": "Alice",
		"surname": "Smith"
	}}`
	ctx := NewContext()
	recs := ctx.ProcessContact(parse(t, doc))
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	contact := recs[0]
	if contact.Kind != artifact.Contact {
		t.Fatalf("kind = %q", contact.Kind)
	}
	if got := contact.Str("display_name"); got != "Alice Smith" {
		t.Errorf("display_name = %q", got)
	}
	if _, ok := contact.Get("tenant_name"); ok {
		t.Errorf("absent contact fields must be omitted")
	}
	// the directory is fed as a side effect
	if got := ctx.Contacts.Enrich("8:alice"); got != "8:alice (Alice Smith)" {
		t.Errorf("enrich after contact = %q", got)
	}
}

func TestEnrichmentRequiresContactsFirst(t *testing.T) {
	// a message processed before its contact stays unenriched
	msg := parse(t, `{"messageType":"Text","id":"m1","creator":"8:alice","content":"hi"}`)
	ctx := NewContext()

	before := ctx.ProcessMessage(msg, "19:x@thread.v2")
	if got := before[0].Str("creator"); got != "8:alice" {
		t.Fatalf("creator = %q, want bare id before contacts load", got)
	}

	ctx.ProcessContact(parse(t, `{"value":{"mri":"8:alice","displayname":"Alice Smith"}}`))
	after := ctx.ProcessMessage(msg, "19:x@thread.v2")
	if got := after[0].Str("creator"); got != "8:alice (Alice Smith)" {
		t.Fatalf("creator = %q, want enriched after contacts load", got)
	}
}
