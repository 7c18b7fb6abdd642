/*
Package roster keeps named, lease-bounded strong references to event
subscribers.

The event side of a weak subscription never keeps its subscriber alive;
somebody else has to. The roster is that somebody: it holds the only
strong reference to each registered subscriber and drops it when the
lease runs out. It deliberately never detaches anything from an event.
Dropping the reference is enough, because once the collector reclaims
the subscriber its handler goes silent, and a later prune sweeps the
inert registration.
*/
package roster
