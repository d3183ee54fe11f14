// Package buildinfo reports the build identity of a Keyforge binary.
//
// Version, Commit and BuildTime are stamped via ldflags at release
// time and default to placeholder values in development builds. The Go
// compiler version is taken from the runtime. Both the --version flag
// and the admin socket status command report through this package.
package buildinfo
