package classify

import (
	"github.com/gcanale/tmx/internal/artifact"
	"github.com/gcanale/tmx/internal/rawjson"
)

// contactFields maps raw contact members to output attribute names. Order
// fixes the attribute order on the emitted record.
var contactFields = [][2]string{
	{"displayname", "display_name"},
	{"email", "email"},
	{"mri", "mri"},
	{"tenantName", "tenant_name"},
	{"objectId", "object_id"},
	{"userType", "user_type"},
	{"givenName", "given_name"},
	{"surname", "surname"},
	{"userPrincipalName", "user_principal_name"},
}

// ProcessContact handles one record from the people export. Every contact
// with both an identifier and a display name feeds the directory used for
// enrichment by all later phases.
func (c *Context) ProcessContact(rec rawjson.Value) []*artifact.Record {
	contact := rec.Field("value")
	if !contact.IsMap() {
		return nil
	}

	c.Contacts.Record(contact.Field("mri").Str(), contact.Field("displayname").Str())

	out := artifact.New(artifact.Contact)
	for _, f := range contactFields {
		if v := contact.Field(f[0]); v.Truthy() {
			out.SetStr(f[1], v.Str())
		}
	}
	return []*artifact.Record{out}
}
