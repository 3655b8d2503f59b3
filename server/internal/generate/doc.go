// Package generate turns a (name, url) submission into a QR image on disk and
// a record in the store.
//
// Generate normalizes the input (trimming, defaulting the scheme to https),
// derives the image name "qr_<name>.png", renders the image and then upserts
// the record. The store is only written after the image exists, so a record
// never points at an image that failed to render.
package generate
