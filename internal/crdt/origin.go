package crdt

// OriginKind distinguishes who initiated a write transaction. It is kept
// as a small tagged value rather than resolved via string formatting, so
// equality checks on the hot observation path stay allocation-free (see
// design notes on transaction origin).
type OriginKind uint8

const (
	// OriginEmpty marks a transaction with no identifiable initiator
	// (used by tests and one-shot local mutations).
	OriginEmpty OriginKind = iota
	// OriginServer marks a transaction applied by a sync server replaying
	// updates on behalf of a peer.
	OriginServer
	// OriginClient marks a transaction initiated directly by a local or
	// remote client.
	OriginClient
)

// Origin is the opaque tag attached to every write transaction. Two
// origins are equal iff their Kind, ClientID and DeviceID all match.
type Origin struct {
	Kind     OriginKind
	ClientID uint64
	DeviceID string
	UserID   string
}

// EmptyOrigin is the zero-value origin used when a caller does not care
// about attribution (tests, offline seeding).
var EmptyOrigin = Origin{Kind: OriginEmpty}

// ServerOrigin builds an Origin tagging a write as initiated by the sync
// server itself (as opposed to a specific connected client).
func ServerOrigin() Origin {
	return Origin{Kind: OriginServer}
}

// ClientOrigin builds an Origin identifying a specific client/device pair.
func ClientOrigin(clientID uint64, deviceID string) Origin {
	return Origin{Kind: OriginClient, ClientID: clientID, DeviceID: deviceID}
}

// Equal reports whether o and other identify the same initiator.
func (o Origin) Equal(other Origin) bool {
	return o.Kind == other.Kind && o.ClientID == other.ClientID && o.DeviceID == other.DeviceID
}
