// Package nativemsg is the driving adapter for browser native messaging.
//
// The browser launches the host and exchanges messages over its standard
// input and output. Each message is a 32-bit length in native byte order
// followed by that many bytes of UTF-8 JSON. Standard output carries nothing
// else; logs go to standard error.
package nativemsg
