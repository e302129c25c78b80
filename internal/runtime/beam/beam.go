// Package beam defines broker topic names and the envelope types carried on
// them. Well-known beams are compile-time constants, one per message kind.
// Private beams are generated at runtime for reply traffic that must be
// privately addressable on a shared broker.
package beam

import (
	"github.com/luminet/beamline/internal/runtime/ids"
)

// Well-known beams. Declared on connect so the broker accepts publishes, and
// subscribed where the bridge consumes them.
const (
	UserCreated = "urn:beamline:oidc:user:created"
	UserUpdated = "urn:beamline:oidc:user:updated"

	TaskCreated         = "urn:beamline:tasks:task:created"
	TaskUpdated         = "urn:beamline:tasks:task:updated"
	TaskAssigneeChanged = "urn:beamline:tasks:task:assignee:changed"
	TaskStateChanged    = "urn:beamline:tasks:task:state:changed"

	ProjectCreated = "urn:beamline:tasks:project:created"
	ProjectUpdated = "urn:beamline:tasks:project:updated"

	FlowCreated = "urn:beamline:tasks:workflow:created"
	FlowUpdated = "urn:beamline:tasks:workflow:updated"

	JobCreated     = "urn:beamline:builds:job:created"
	JobRequest     = "urn:beamline:builds:job:request"
	JobResult      = "urn:beamline:builds:job:result"
	JobHelpRequest = "urn:beamline:builds:job:help"
)

// Namespaces for private beams, one per multi-turn feature area.
const (
	VoiceNamespace  = "urn:beamline:voice"
	PromptNamespace = "urn:beamline:prompt"
)

// suffixLength is the number of random alphanumeric characters appended to a
// namespace when allocating a private beam.
const suffixLength = 10

// NewPrivate allocates a collision-resistant beam under the namespace.
// Collisions are possible in principle and not checked; two sessions landing
// on the same beam would silently merge.
func NewPrivate(namespace string) string {
	return namespace + ":" + ids.RandomSuffix(suffixLength)
}

// PrivatePair is the pair of dynamic beams backing one feature area: this
// process publishes requests on Request and subscribes to Reply, where the
// remote side publishes responses.
type PrivatePair struct {
	Request string
	Reply   string
}

// NewPrivatePair allocates both beams of a feature area together.
func NewPrivatePair(namespace string) PrivatePair {
	return PrivatePair{
		Request: NewPrivate(namespace + ":request"),
		Reply:   NewPrivate(namespace + ":reply"),
	}
}
