// Package metrics exposes qrledger counters in the Prometheus text format.
//
// Registry keeps the counters in memory and renders them as client_model
// MetricFamily values through expfmt, so any Prometheus-compatible scraper can
// read GET /metrics:
//
//	qrledger_generate_total{result="success|validation|io|parse|encode"}  counter
//	qrledger_upserts_total                                                counter
//	qrledger_records                                                      gauge
package metrics
