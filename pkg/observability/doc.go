/*
Package observability exports Prometheus metrics for weak event traffic.

A reclaimed subscriber stops receiving events with no error and no log
line. The Collector turns the handler hooks into counters so that
silence still shows up on a dashboard, and its event gauges make the
inert registrations that accumulate between prunes visible.
*/
package observability
