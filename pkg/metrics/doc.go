/*
Package metrics defines and registers collabd's Prometheus metrics:
persistence throughput (documents open, updates pushed, flush duration,
snapshots), row block loader behavior (cache size, build outcome/
duration, dedup count), sync protocol traffic (active sessions, message
counts by direction/type, decode errors), and entity mutation counts.
Collector samples the document count and row cache size gauges. The
other metrics are registered and exported, but no package in collabd
updates them.
*/
package metrics
