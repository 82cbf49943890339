package domain

type Kind string

const (
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindDanger  Kind = "danger"
)

// Notification is the one-shot status message produced by a cart mutation.
type Notification struct {
	Text string `json:"message"`
	Kind Kind   `json:"type"`
}

// IsZero reports whether n carries no message.
func (n Notification) IsZero() bool {
	return n.Text == ""
}
