//go:build cgo

package store

// The libsql driver requires cgo; CGO-free builds use the modernc sqlite driver.
import _ "github.com/tursodatabase/go-libsql"
