package realtime

import "time"

type Config struct {
	ICEServers  []ICEServerConfig
	PortRange   PortRange
	BufferSizes BufferSizes
	MaxSDPSize  int

	// KeyframeInterval is how often a picture loss indication is sent to the
	// publisher. Only VP8 key frames can be decoded into stills.
	KeyframeInterval time.Duration
	// DecodeInterval throttles how often a key frame is decoded into the latest frame.
	DecodeInterval time.Duration
}

type ICEServerConfig struct {
	URLs       []string
	Username   string
	Credential string
}

type PortRange struct {
	Min int
	Max int
}

type BufferSizes struct {
	ICECandidates int
}
