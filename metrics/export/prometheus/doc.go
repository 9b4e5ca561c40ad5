// Package prometheus exposes sessionauth engine metrics to Prometheus.
//
// [NewCollector] wraps an [sessionauth.Engine] as a prometheus.Collector.
// Counter names are prefixed sessionauth_*_total; the single histogram is
// sessionauth_verify_token_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry; callers register
//     the collector or mount [Handler].
//   - Mutate engine state.
package prometheus
