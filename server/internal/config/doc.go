// Package config loads the qrledger server configuration from a YAML file.
//
// Config fields:
//   - Server.HTTPPort    — port for the REST API, images and WebSocket hub (default 3500)
//   - Server.LogLevel    — debug | info | warn | error (default info)
//   - Server.HubInterval — WebSocket rebroadcast interval (default 5s)
//   - Store.Path         — record file (default "BD.txt")
//   - Store.Malformed    — fail | skip, handling of unparseable lines (default fail)
//   - Store.Timeout      — bound on one store operation incl. lock wait (default 5s)
//   - Images.Dir         — directory QR images are written to and served from (default "image")
//   - QR.Size            — PNG edge length in pixels (default 256)
//   - QR.Level           — low | medium | high | highest error correction (default medium)
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, fn) reloads the file on change and hands valid configs to fn.
package config
