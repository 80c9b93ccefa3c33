// Copyright sfrouting Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fabriterr defines the closed set of error kinds that the
// routing, resolution and direct-messaging fabric propagates. None of
// these are ever swallowed silently: every outbound wrap path emits a
// typed failure reply instead of dropping a failed request on the
// floor.
package fabriterr

import (
	"github.com/pkg/errors"
)

// Kind is one of the error kinds a caller can classify with errors.Is.
type Kind struct {
	name string
}

func (k Kind) Error() string { return k.name }

// String renders the kind's wire name, used when a typed error kind
// must cross a transport boundary as plain text (e.g. an IpcFailure
// body).
func (k Kind) String() string { return k.name }

var (
	// InvalidMessage means a required header was missing or an action
	// was unrecognised.
	InvalidMessage = Kind{"InvalidMessage"}

	// InvalidAddress means a ServiceLocation's host address contained
	// the reserved '+' delimiter.
	InvalidAddress = Kind{"InvalidAddress"}

	// SystemServiceNotFound means the resolver found no partition, or
	// found one but could not parse a usable location out of it.
	SystemServiceNotFound = Kind{"SystemServiceNotFound"}

	// FMFailoverUnitNotFound means the partition has vanished from the
	// FM's point of view; callers should treat this as retryable after
	// re-resolving the name to a (possibly new) partition.
	FMFailoverUnitNotFound = Kind{"FMFailoverUnitNotFound"}

	// MessageHandlerDoesNotExistFault means no registered handler
	// matched the message's FilterHeader at the destination host.
	MessageHandlerDoesNotExistFault = Kind{"MessageHandlerDoesNotExistFault"}

	// OperationTimeout means a leg of a routed or direct request
	// exceeded its remaining timeout budget.
	OperationTimeout = Kind{"OperationTimeout"}

	// ConnectionDenied means the underlying transport refused or could
	// not establish a connection to the target.
	ConnectionDenied = Kind{"ConnectionDenied"}

	// CannotConnectToAnonymousTarget is reported by the IPC transport
	// when the target host process is gone; the routing agent maps
	// this to MessageHandlerDoesNotExistFault before it reaches a
	// caller.
	CannotConnectToAnonymousTarget = Kind{"CannotConnectToAnonymousTarget"}

	// PartitionNotFound is a resolver-side synonym for
	// FMFailoverUnitNotFound used by some collaborators; it is
	// classified identically.
	PartitionNotFound = Kind{"PartitionNotFound"}

	// ServiceOffline means the resolver reached the FM but the service
	// is not currently placed anywhere; surfaced as SystemServiceNotFound.
	ServiceOffline = Kind{"ServiceOffline"}
)

// knownKinds lists every Kind by wire name, for KindFromString.
var knownKinds = map[string]Kind{
	InvalidMessage.name:                  InvalidMessage,
	InvalidAddress.name:                  InvalidAddress,
	SystemServiceNotFound.name:           SystemServiceNotFound,
	FMFailoverUnitNotFound.name:          FMFailoverUnitNotFound,
	MessageHandlerDoesNotExistFault.name: MessageHandlerDoesNotExistFault,
	OperationTimeout.name:                OperationTimeout,
	ConnectionDenied.name:                ConnectionDenied,
	CannotConnectToAnonymousTarget.name:  CannotConnectToAnonymousTarget,
	PartitionNotFound.name:               PartitionNotFound,
	ServiceOffline.name:                  ServiceOffline,
}

// KindFromString resolves a wire name back to its Kind. An unrecognised
// name decodes to InvalidMessage rather than panicking, since it can
// only arrive from a peer running a different build.
func KindFromString(name string) Kind {
	if k, ok := knownKinds[name]; ok {
		return k
	}
	return InvalidMessage
}

// Wrap annotates err with msg while preserving errors.Is matching
// against the original Kind (or any other sentinel).
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Wrapf is the format-string form of Wrap.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Is reports whether err's chain contains the given Kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, kind)
}

// KindOf extracts the Kind carried in err's chain, for building a typed
// IpcFailure/DirectMessagingFailure body out of an arbitrary
// collaborator error. An err matching none of the known kinds maps to
// InvalidMessage, since the reply body must always carry one of the
// closed set of kinds.
func KindOf(err error) Kind {
	for _, k := range knownKinds {
		if Is(err, k) {
			return k
		}
	}
	return InvalidMessage
}

// Classify maps a raw collaborator error onto the kind the core
// surfaces to its own callers, per the resolver's error-classification
// table:
//
//   - FMFailoverUnitNotFound or PartitionNotFound -> FMFailoverUnitNotFound
//   - ServiceOffline                               -> SystemServiceNotFound
//   - CannotConnectToAnonymousTarget                -> MessageHandlerDoesNotExistFault
//   - anything else is returned unchanged
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case Is(err, FMFailoverUnitNotFound), Is(err, PartitionNotFound):
		return Wrap(FMFailoverUnitNotFound, err.Error())
	case Is(err, ServiceOffline):
		return Wrap(SystemServiceNotFound, err.Error())
	case Is(err, CannotConnectToAnonymousTarget):
		return Wrap(MessageHandlerDoesNotExistFault, err.Error())
	default:
		return err
	}
}
