/*
Package workers sizes worker pools from GOMAXPROCS so that pool sizes follow
container CPU limits rather than the host CPU count.

Two workloads use it today: the catalog scanner, which reads category
directories in parallel (I/O-bound, 2 workers per CPU), and thumbnail
rendering (CPU-bound, 1 per CPU).

	scanWorkers := workers.ForIO(16)
	thumbWorkers := workers.ForCPU(4)

SCAN_WORKERS overrides the I/O-bound count and THUMBNAIL_WORKERS the
CPU-bound count. Overrides are still capped by the limit argument.
*/
package workers
