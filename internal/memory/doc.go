// Package memory configures Go's soft memory limit in containers and
// provides back-pressure for memory-hungry work.
//
// Go reads the cgroup CPU quota for GOMAXPROCS but not the memory limit.
// [ConfigureFromEnv] fills that gap: pass the container limit in
// MEMORY_LIMIT (bytes, typically via the Kubernetes Downward API) and the
// runtime soft limit becomes MEMORY_RATIO of it (default 0.85). An explicit
// GOMEMLIMIT always wins.
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//
// Decoding a large image for a thumbnail can allocate tens of megabytes at
// once. The [Monitor] samples heap usage and reports ShouldThrottle while
// usage sits above the high water mark, so the thumbnail endpoint can answer
// 503 instead of pushing the process into an OOM kill. Catalog scans and
// random picks are never throttled.
package memory
