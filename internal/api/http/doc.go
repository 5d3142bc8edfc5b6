/*
Package http exposes the orchestrator over HTTP.

# Routes

	GET    /               service banner
	GET    /health         orchestrator stats (503 once stopped)
	GET    /modules        module names in execution order
	POST   /modules        {"kind": "...", "name": "..."} adds a stock module
	DELETE /modules/:name  removes the newest module with that name
	POST   /records        {"text": "...", "async": false} processes a record
	POST   /records/raw    raw text or HTML body, any charset (?async=true)
	GET    /stream         WebSocket: {"type":"process","text":"..."}

Submitted text is stripped of markup before processing.
*/
package http
