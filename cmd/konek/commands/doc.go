// Package commands defines the konek CLI, a terminal client for the matchmaking server.
//
// Commands
//
//   - chat     Find an anonymous partner and chat end-to-end encrypted
//   - stats    Print online, waiting and active-session counts
//
// While chatting, /next leaves the current partner and /quit exits.
package commands
