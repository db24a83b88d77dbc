package cluster

import "fmt"

// UnresolvedReferenceError is the fatal error raised when a packet's bref
// or fref names a timecode no buffered or rendered packet carries.
type UnresolvedReferenceError struct {
	TrackID          uint64
	ReferencingTC    int64
	RequestedTC      int64
	ClusterPacketIDs []uint64
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("cluster: packet at timecode %dns on track %d references unresolved timecode %dns (cluster packet ids: %v)",
		e.ReferencingTC, e.TrackID, e.RequestedTC, e.ClusterPacketIDs)
}

// ProtocolViolationError marks a fatal malformed-stream condition such as a
// P frame before any I frame.
type ProtocolViolationError struct {
	Reason string
}

func (e *ProtocolViolationError) Error() string { return "cluster: protocol violation: " + e.Reason }
