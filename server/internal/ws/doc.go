// Package ws implements the WebSocket hub for qrledger-server.
//
// Hub manages a set of connected clients and pushes the current record list
// to all of them whenever the store changes (Notify) and on a fixed interval
// as a fallback.
//
// New(store, interval) creates a Hub.
// Hub.Run(ctx) runs the broadcast loop until ctx is cancelled, then closes
// all active connections.
// Hub.Notify() schedules an immediate broadcast; calls coalesce.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the record
// list immediately on connect, then streams updates.
//
// Message format sent to clients:
//
//	{
//	  "event": "records",
//	  "data":  { "records": [ /* RecordResponse */ ], "generated_at": "..." }
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The server mounts the hub at /ws/records.
package ws
