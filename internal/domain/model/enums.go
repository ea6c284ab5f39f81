package model

// MFAChannel enumerates the channels the identity provider can deliver a
// one-time code over. The reference deployment only exercises SMS, but the
// login sequence treats the channel as data so new channels do not change its
// shape.
type MFAChannel string

const (
	MFAChannelSMS   MFAChannel = "securephone"
	MFAChannelEmail MFAChannel = "secureemail"
)

// RunState tracks whether the aggregated feed has been populated. It replaces
// a process-global "data fetched" boolean: the component that serves reads
// owns exactly one RunState value.
type RunState string

const (
	RunStateNotFetched RunState = "not_fetched"
	RunStateFetching   RunState = "fetching"
	RunStateReady      RunState = "ready"
)

// SourceOutcome records one provider's result within a refresh run. Err is nil
// on success; a failed provider never aborts its siblings.
type SourceOutcome struct {
	Source string
	Count  int
	Err    error
}
