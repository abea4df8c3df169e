// Package probe asks the downloader for a URL's metadata without downloading
// anything and reduces the dump to the format listing clients choose from.
package probe
