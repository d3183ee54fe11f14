// Package output renders keyforge-admin command results.
//
// The Formatter interface has three implementations selected by the
// --output flag: aligned text tables (default), JSON and YAML. The
// table renderer derives columns from json struct tags, with extra
// columns unlocked by --wide. Spinner provides feedback during slow
// admin-socket operations such as backup and restore.
package output
