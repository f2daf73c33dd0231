// Package ws implements the server side of the websocket framing
// protocol (RFC 6455 section 5) over arbitrary byte streams.
package ws

// The HTTP upgrade handshake is not part of this package: a stream is
// handed over once the handshake completed (see pkg/transport), or is
// a raw link speaking frames from the first byte.
//
// All Server methods except Attach must be called from the control
// loop goroutine. Each client has a fixed receive buffer holding one
// message (MaxMessageLen) and a fixed send buffer (SendBufferSize);
// nothing is allocated per message.
//
// Inbound bytes flow: stream -> Client reader -> Server.Poll ->
// Parser -> Handler. Outbound: Server.Send/Broadcast -> Client send
// buffer -> stream.
