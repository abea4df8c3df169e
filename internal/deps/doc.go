// Package deps reports whether the external downloader and encoder are
// installed and which versions they are.
package deps
