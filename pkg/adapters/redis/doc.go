/*
Package redis feeds Redis pub/sub channels into local weak events.

A Source subscribes to one channel and re-raises every well-formed
message on an in-process Event. Local subscribers attach weak handlers
to that event, so a subscriber that disappears is simply never called
again; the Redis subscription itself stays up for the life of the
source, one connection regardless of subscriber churn.

Messages are JSON envelopes:

	{"origin": "sensor-7", "data": {"room": "hall", "celsius": 21.5}}

origin names the publisher and reaches handlers through the sender;
data is projected onto the event's payload type. Messages that fail
either step are counted, logged and skipped; they never stop the feed.
*/
package redis
