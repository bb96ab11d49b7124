// Package client is a Go implementation of the browser flow: it connects to the signaling
// socket, asks for a match, runs the key exchange with the partner and exchanges sealed chat
// messages either through the server relay or over a WebRTC data channel.
package client
