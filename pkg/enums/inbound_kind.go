package enums

// InboundKind classifies an inbound chat event.
type InboundKind string

const (
	InboundKindText        InboundKind = "text"
	InboundKindButton      InboundKind = "button"
	InboundKindList        InboundKind = "list"
	InboundKindImage       InboundKind = "image"
	InboundKindLocation    InboundKind = "location"
	InboundKindUnsupported InboundKind = "unsupported"
)

// String implements fmt.Stringer.
func (k InboundKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known InboundKind.
func (k InboundKind) IsValid() bool {
	switch k {
	case InboundKindText, InboundKindButton, InboundKindList, InboundKindImage, InboundKindLocation, InboundKindUnsupported:
		return true
	default:
		return false
	}
}
