// Package api implements the HTTP interface of qrledger-server.
//
// New(store, generator, imageDir) returns an http.Handler that serves:
//
//	GET  /api/v1/health         — {"status":"ok","record_count":N}; 500 if the store is unreadable
//	GET  /api/v1/records        — all records in store order ([]RecordResponse)
//	GET  /api/v1/records/{key}  — single record; 404 if unknown
//	POST /api/v1/generate       — form (nom_site|name, url) or JSON {"name","url"};
//	                              201 GenerateResponse, 400 on invalid input
//	GET  /images/{artifact}     — the generated PNG; only qr_*.png names are served
//	POST /generer               — alias of /api/v1/generate for first-release forms
//	GET  /image/{artifact}      — alias of /images/{artifact} for first-release links
//
// API endpoints respond with Content-Type: application/json and return 405
// for unsupported methods. Every response carries an X-Request-Id header.
package api
