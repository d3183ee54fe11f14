// Package confloader loads Keyforge configuration.
//
// Values merge from three sources with rising priority: the target
// struct's preset defaults, a YAML config file, and KEYFORGE_-prefixed
// environment variables. Loading is built on koanf; the optional
// Watcher layer adds fsnotify-based change notification so the server
// can react to config file edits at runtime.
package confloader
