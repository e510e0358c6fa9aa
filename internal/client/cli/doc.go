// Package cli provides the interactive credit console.
//
// The console resumes a saved session when there is one, otherwise it
// waits for "login". Once logged in, "use <resource>" opens a list backed
// by a listquery controller and the paging, search and filter commands
// drive it. When the HTTP client gives up on the session, OnSessionExpired
// drops the console back to the logged-out prompt.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
