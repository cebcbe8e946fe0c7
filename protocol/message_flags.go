package protocol

// MessageFlags is a bit set carried as the :message-flags reserved header
// (an Int32 header value). Only ConnectionAccepted and TerminateStream
// have defined meaning here; per spec §3, other bits must round-trip
// unchanged but carry no meaning, so every int32 value is accepted.
type MessageFlags int32

const (
	FlagNone             MessageFlags = 0
	FlagConnectionAccept MessageFlags = 1 << 0
	FlagTerminateStream  MessageFlags = 1 << 1
)

// Has reports whether all bits of flag are set.
func (f MessageFlags) Has(flag MessageFlags) bool {
	return f&flag == flag
}
