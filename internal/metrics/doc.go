// Package metrics records scan counters in a Prometheus registry.
//
// A Recorder is created once per process and shared by every surface in a
// batch; series are labelled with the surface name. foilscan is a batch
// tool, so the registry is written to a node-exporter textfile at the end
// of a scan instead of being scraped over HTTP.
package metrics
