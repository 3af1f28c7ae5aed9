/*
Package events implements a small multi-subscriber, non-blocking event
broker used by the row block loader's DidFetchRow/DidUpdateRow fan-out
(internal/rowblock publishes Event values). Publish never blocks: a subscriber whose
buffer is full drops the event rather than stalling the publisher, and a
subscriber that subscribes after a fetch started simply never sees it.
*/
package events
