// Package commands defines the dissent CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init         Create a session with a peer from a shared root key
//   - send         Encrypt a message and print the packet as JSON
//   - recv         Decrypt a packet read from a file or stdin
//   - rotate       Replace the local ratchet key pair
//   - install-key  Apply a peer's public key (receive-side ratchet step)
//   - list         List peers with a stored session
//   - status       Show the non-secret state of a session
//   - delete       Remove a session
//
// # Implementation
//
// The root command loads the YAML config, applies flag overrides, builds the
// dependency graph (backend, session store and service, vault) and unlocks
// the vault before any subcommand runs. The graph is closed afterwards.
package commands
