package apptoken

import "github.com/sipico/apptokens/internal/storage"

// TokenView is the serialized form of a token returned to clients.
// It never carries secret material.
type TokenView struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	LastActivity int64           `json:"lastActivity"`
	Type         storage.Kind    `json:"type"`
	Scope        map[string]bool `json:"scope"`
	CanDelete    bool            `json:"canDelete"`
	Current      bool            `json:"current,omitempty"`
}

// Created is the result of Create. Token is the plaintext credential and is
// never retrievable again.
type Created struct {
	Token       string    `json:"token"`
	LoginName   string    `json:"loginName"`
	DeviceToken TokenView `json:"deviceToken"`
}

func newView(t *storage.Token) TokenView {
	v := TokenView{
		ID:    t.ID,
		Name:  t.Name,
		Type:  t.Kind,
		Scope: make(map[string]bool, len(t.Scope)),
	}
	if !t.LastActivity.IsZero() {
		v.LastActivity = t.LastActivity.Unix()
	}
	for k, val := range t.Scope {
		v.Scope[k] = val
	}
	return v
}
