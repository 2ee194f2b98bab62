// Package queuebuilder drains the build queue one package at a time.
//
// A Worker cycles through four states. Fresh is the initial state; EmptyQueue
// and Locked make the next iteration sleep for the configured interval, while
// InProgress continues immediately so a backlog drains without pauses. A
// panic while building is caught, logged as a grave error and answered by
// engaging the queue lock so an operator can investigate.
package queuebuilder
