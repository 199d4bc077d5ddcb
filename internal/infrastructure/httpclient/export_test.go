package httpclient

// NewTransport exports newTransport for testing.
var NewTransport = newTransport //nolint:gochecknoglobals // test export
