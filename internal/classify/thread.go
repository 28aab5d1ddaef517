package classify

import (
	"strings"

	"github.com/gcanale/tmx/internal/artifact"
	"github.com/gcanale/tmx/internal/rawjson"
	"github.com/gcanale/tmx/internal/timeutil"
)

// threadKind classifies a thread by its identifier suffix.
func threadKind(threadID string) artifact.Kind {
	switch {
	case strings.HasSuffix(threadID, "@thread.v2"):
		return artifact.GroupChat
	case strings.HasSuffix(threadID, "@unq.gbl.spaces"):
		return artifact.PrivateChat
	case strings.HasSuffix(threadID, "@thread.tacv2"):
		return artifact.TeamsChannel
	default:
		return artifact.Thread
	}
}

// ProcessThread handles one record from the conversations export. It records
// the conversation-to-tenant mapping consulted by every message builder, then
// emits the thread record plus one member record per roster entry.
func (c *Context) ProcessThread(rec rawjson.Value) []*artifact.Record {
	thread := rec.Field("value").Field("value")
	if !thread.IsMap() {
		return nil
	}
	tenantID := rec.Field("tenant_id").Str()

	threadID := thread.Field("id").Clean()
	if threadID != "" && tenantID != "" {
		c.Tenants[threadID] = tenantID
	}

	kind := threadKind(threadID)
	out := artifact.New(kind).
		SetStr("thread_id", threadID).
		SetStr("thread_type", thread.Field("type").Clean()).
		SetStr("tenant_id", tenantID)
	if teamID := thread.Field("teamId").Clean(); kind == artifact.TeamsChannel && teamID != "" {
		out.SetStr("team_id", teamID)
	}

	props := thread.Field("threadProperties")
	if topic := firstClean(props.Field("topic"), props.Field("title")); topic != "" {
		out.SetStr("topic", topic)
	}
	if desc := props.Field("description").Clean(); desc != "" {
		out.SetStr("description", desc)
	}
	if creator := props.Field("creator").Clean(); creator != "" {
		out.SetStr("creator", c.Contacts.Enrich(creator))
	}
	if created := props.Field("createdAt"); created.Truthy() {
		out.SetTime("created_at", timeutil.Display(created))
	}
	if draft := thread.Field("properties").Field("hasMessageDraft"); draft.Exists() {
		out.SetStr("has_draft", boolWord(draft.Truthy()))
	}
	if count := thread.Field("rosterSummary").Field("memberCount"); count.Exists() {
		out.SetStr("member_count", count.Str())
	}

	records := []*artifact.Record{out}
	for _, m := range thread.Field("members").List() {
		id := firstClean(m.Field("id"), m.Field("mri"))
		if id == "" {
			continue
		}
		records = append(records, artifact.New(artifact.ThreadMember).
			SetStr("thread_id", threadID).
			SetStr("tenant_id", tenantID).
			SetStr("member_id", c.Contacts.Enrich(id)))
	}
	return records
}

func firstClean(vals ...rawjson.Value) string {
	for _, v := range vals {
		if s := v.Clean(); s != "" {
			return s
		}
	}
	return ""
}

func boolWord(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
