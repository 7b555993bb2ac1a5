// Package config loads the settings shared by the chat binaries.
//
// Sources are merged field by field; the first source that sets a field
// wins:
//  1. Environment variables (CHAT_*, plus the legacy REQ_ADDR and SUB_ADDR)
//  2. Command-line flags
//  3. JSON config file named by -c/-config or CHAT_CONFIG
//  4. Built-in defaults
//
// The merged result is validated before it is returned by [Load].
package config
