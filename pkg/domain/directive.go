package domain

// DirectiveKind is the USSD response kind.
type DirectiveKind string

const (
	Continue DirectiveKind = "CON"
	End      DirectiveKind = "END"
)

// Directive is the outbound answer of the dialog engine.
type Directive struct {
	Kind    DirectiveKind `json:"kind"`
	Message string        `json:"message"`
}

// ContinueWith builds a CON directive.
func ContinueWith(msg string) Directive {
	return Directive{Kind: Continue, Message: msg}
}

// EndWith builds an END directive.
func EndWith(msg string) Directive {
	return Directive{Kind: End, Message: msg}
}

// String renders the wire form expected by aggregators ("CON ..." / "END ...").
func (d Directive) String() string {
	return string(d.Kind) + " " + d.Message
}

// IsEnd reports whether the dialog is over.
func (d Directive) IsEnd() bool {
	return d.Kind == End
}
