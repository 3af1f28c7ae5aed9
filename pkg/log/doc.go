/*
Package log wraps zerolog to provide collabd's structured logging: a
global Logger initialized via Init, and child-logger helpers
(WithDocID, WithRowID, WithSessionID, WithOrigin) that attach the context
fields the persistence, row block and sync protocol layers log against
instead of string-formatting them ad hoc.
*/
package log
