// Package qr renders URLs as QR code PNG files.
package qr
