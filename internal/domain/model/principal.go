package model

// Principal is the authenticated caller. A nil *Principal means anonymous.
type Principal struct {
	UserID string
	Email  string
}

func (p *Principal) IsZero() bool {
	return p == nil || p.UserID == ""
}
