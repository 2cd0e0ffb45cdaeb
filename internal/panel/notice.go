package panel

// Kind is the style of an inline notice
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notice is the message shown after an action completes.
type Notice struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`

	// Sticky notices stay until replaced; others auto-hide.
	Sticky bool `json:"sticky,omitempty"`

	// FollowUp replaces Text shortly after a terminal action succeeds.
	FollowUp string `json:"follow_up,omitempty"`

	// Err is the failure behind an error notice.
	Err error `json:"-"`
}

// Failed reports whether the notice describes a failure
func (n Notice) Failed() bool {
	return n.Kind == KindError
}

func success(text string) Notice {
	return Notice{Kind: KindSuccess, Text: text}
}

func infoNotice(text string) Notice {
	return Notice{Kind: KindInfo, Text: text}
}

func failure(text string, err error) Notice {
	return Notice{Kind: KindError, Text: text, Err: err}
}
