// SPDX-License-Identifier: MIT
/*
Package transport fans completed spectrum frames out to external
consumers. Transports never apply backpressure to the pipeline: a slow or
absent consumer drops frames, it does not stall analysis.
*/
package transport

import "specviz/internal/spectro"

// Transport delivers frames to some external consumer. Implementations
// must be safe for concurrent use and must not block in Send.
type Transport interface {
	Send(frame *spectro.Frame) error
	Close() error
}
