// Package submit serializes recorded responses and delivers them to the
// persistence endpoint.
package submit

import (
	"prefsurvey/internal/session"
)

// Entry is one preference row.
type Entry struct {
	Question          string `json:"question"`
	PreferredResponse string `json:"preferredResponse"`
	PreferredModel    string `json:"preferredModel"`
	// Sheet carries the item's group tag; the receiver derives
	// workflow_state from it.
	Sheet string `json:"sheet"`
}

// Payload is the request body POSTed to the endpoint.
type Payload struct {
	Email     string  `json:"email"`
	FormType  string  `json:"formType,omitempty"`
	Responses []Entry `json:"responses"`
}

// NewPayload converts a session dispatch into the wire payload, keeping the
// dispatch order.
func NewPayload(d *session.Dispatch) Payload {
	p := Payload{
		Email:     d.Email,
		FormType:  d.Form,
		Responses: make([]Entry, 0, len(d.Responses)),
	}
	for _, r := range d.Responses {
		p.Responses = append(p.Responses, EntryFor(r))
	}
	return p
}

// EntryFor maps one recorded response to its wire row.
func EntryFor(r session.Response) Entry {
	return Entry{
		Question:          r.Question,
		PreferredResponse: r.PreferredText,
		PreferredModel:    r.PreferredModel,
		Sheet:             r.Group,
	}
}
