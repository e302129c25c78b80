// Package transports registers every built-in transport with the default
// registry. Import it for its side effects:
//
//	import _ "github.com/luminet/beamline/transport/transports"
package transports

import (
	_ "github.com/luminet/beamline/transport/channel"
	"github.com/luminet/beamline/transport/nats"
)

func init() {
	nats.Register()
}
