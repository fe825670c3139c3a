// Package orchestrator drains an incident's outstanding module set by
// repeatedly notifying the registered dumpers.
//
// Each round waits until at least one outstanding module has a registered
// dumper, then requests a dump of everything outstanding and removes what
// completed. A round that completes nothing ends the drain: partial
// completion is accepted and never retried within the same boot.
//
// Registration waits are unbounded by default. WithMaxRegistrationWait
// bounds them.
package orchestrator
