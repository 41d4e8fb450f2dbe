// Package mapping holds the process-wide configuration entry point of the
// mapping service. The service must receive its API key exactly once, before
// anything renders a map.
package mapping
