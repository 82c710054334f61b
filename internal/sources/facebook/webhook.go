// Package facebook ingests Facebook lead-ads submissions: the page webhook
// announces a leadgen ID and the Graph API supplies the form answers.
package facebook

// WebhookPayload is the body Facebook POSTs to the page webhook.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Time    int64    `json:"time"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	LeadgenID   string `json:"leadgen_id"`
	PageID      string `json:"page_id"`
	FormID      string `json:"form_id"`
	AdID        string `json:"ad_id"`
	CreatedTime int64  `json:"created_time"`
}

// PageLead is one leadgen notification for a page.
type PageLead struct {
	PageID    string
	LeadgenID string
	FormID    string
}

// IsPageEvent reports whether the payload is a page subscription event.
func (p WebhookPayload) IsPageEvent() bool {
	return p.Object == "page"
}

// Leads flattens every leadgen change in the payload.
func (p WebhookPayload) Leads() []PageLead {
	var out []PageLead
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if change.Field != "leadgen" || change.Value.LeadgenID == "" {
				continue
			}
			pageID := change.Value.PageID
			if pageID == "" {
				pageID = entry.ID
			}
			out = append(out, PageLead{PageID: pageID, LeadgenID: change.Value.LeadgenID, FormID: change.Value.FormID})
		}
	}
	return out
}

// Verify answers the subscription handshake. ok is false when the mode or
// token does not match.
func Verify(mode, token, challenge, expected string) (string, bool) {
	if mode != "subscribe" || expected == "" || token != expected {
		return "", false
	}
	return challenge, true
}

// MessageID is the ledger key for a leadgen notification.
func MessageID(leadgenID string) string {
	return "fb:" + leadgenID
}
