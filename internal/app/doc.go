// Package app wires application dependencies for the CLI.
//
// It loads Config, builds the selected secret store backend, the session
// store and service, and the vault handle that guards an encrypted file
// backend, exposing them via the Wire struct for commands to use.
package app
