package models

// Contact is a directory contact as returned by the RapidPro contacts API.
type Contact struct {
	UUID   string            `json:"uuid"`
	Name   string            `json:"name,omitempty"`
	URNs   []string          `json:"urns"`
	Fields map[string]string `json:"fields"`
	Groups []ContactGroup    `json:"groups"`
}

type ContactGroup struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// Field returns the named custom field, or "" when unset.
func (c *Contact) Field(key string) string {
	if c == nil || c.Fields == nil {
		return ""
	}
	return c.Fields[key]
}

// Flow is a RapidPro flow definition.
type Flow struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}
