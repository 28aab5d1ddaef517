package classify

import (
	"strings"

	"github.com/gcanale/tmx/internal/artifact"
	"github.com/gcanale/tmx/internal/markup"
	"github.com/gcanale/tmx/internal/props"
	"github.com/gcanale/tmx/internal/rawjson"
	"github.com/gcanale/tmx/internal/timeutil"
)

// buildMessage handles regular Text and RichText/Html messages. Besides the
// message record itself it emits one attachment record per extracted link or
// file and one mention record per merged mention.
func (c *Context) buildMessage(msg rawjson.Value, convID string) []*artifact.Record {
	properties := msg.Field("properties")

	content := msg.Field("content").Str()
	msgID := msg.Field("id").Str()
	msgType := msg.Field("messageType").Str()
	tenantID := c.tenant(convID)

	amsImage := false
	if msgType == "RichText/Html" {
		content = c.render.Render(content, forwardContext(properties))
		amsImage = strings.Contains(strings.ToLower(content), "amsimage")
	}
	if content == "" {
		content = props.FileNames(properties)
	}

	links, files, mentions := props.Extract(properties)
	hasAttachment := "no"
	if props.HasAttachments(properties, links, files) {
		hasAttachment = "yes"
	}

	var out []*artifact.Record
	if amsImage {
		out = append(out, c.attachment(convID, msgID, "", "AMSImage", "image"))
	}

	rec := artifact.New(artifact.Message).
		SetStr("tenant_id", tenantID).
		SetStr("conversation_id", convID).
		SetStr("message_id", msgID).
		SetStr("sequence_id", msg.Field("sequenceId").Str()).
		SetStr("creator", c.Contacts.Enrich(msg.Field("creator").Str())).
		SetStr("display_name", msg.Field("imDisplayName").Str()).
		SetStr("content", content).
		SetStr("message_type", msgType).
		SetStr("has_attachment", hasAttachment).
		SetStr("properties_json", properties.JSON())
	if ts, ok := timeutil.Epoch(msg.Field("originalArrivalTime")); ok && ts != 0 {
		rec.SetEpoch("server_arrival_time", ts)
	}
	embeddedEpochs(rec, properties, messageTimes...)

	out = append(out, rec)
	for _, url := range links {
		out = append(out, c.attachment(convID, msgID, url, "", "link"))
	}
	for _, f := range files {
		out = append(out, c.attachment(convID, msgID, "", f.Name, f.Type))
	}
	for _, m := range mentions {
		out = append(out, artifact.New(artifact.Mention).
			SetStr("tenant_id", tenantID).
			SetStr("conversation_id", convID).
			SetStr("message_id", msgID).
			SetStr("mention_mri", m.MRI).
			SetStr("mention_type", m.Type).
			SetStr("mention_display_name", m.DisplayName))
	}
	return out
}

func (c *Context) attachment(convID, msgID, url, name, ftype string) *artifact.Record {
	rec := artifact.New(artifact.Attachment).
		SetStr("tenant_id", c.tenant(convID)).
		SetStr("conversation_id", convID).
		SetStr("message_id", msgID)
	if url != "" {
		rec.SetStr("attachment_url", url)
	}
	rec.SetStr("attachment_name", name)
	if ftype != "" {
		rec.SetStr("attachment_type", ftype)
	}
	return rec
}

// forwardContext pulls the original-message context used when rendering a
// forwarded quote: the original sender and the formatted arrival time.
func forwardContext(properties rawjson.Value) *markup.Original {
	ctx := properties.Field("originalMessageContext")
	if !ctx.IsMap() {
		return nil
	}
	orig := &markup.Original{Sender: ctx.Field("sender").Str()}
	if t := ctx.Field("clientArrivalTime"); t.Truthy() {
		orig.Time = timeutil.Display(t)
	}
	return orig
}
