package domain

// Identity is the caller-supplied, application-level user name.
type Identity string

// EndpointID addresses one live transport connection.
type EndpointID string

func (i Identity) Valid() bool {
	return i != ""
}

// Stats is a point-in-time snapshot of the relay state.
type Stats struct {
	ConnectedUsers int
	ActiveCalls    int
	PendingTimers  int
}
