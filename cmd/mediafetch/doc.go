// Command mediafetch runs the download daemon and talks to it over HTTP.
//
// "mediafetch serve" starts the daemon. The remaining commands are thin
// clients: submit queues a download and streams the finished file to disk,
// status and info render daemon state and format listings as tables, and
// deps runs the local preflight checks.
package main
