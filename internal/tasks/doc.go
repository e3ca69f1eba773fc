// Package tasks implements Track Ingest and the background cover-art work that follows it.
//
// # Track Ingest
//
// [Ingestor.Ingest] validates an upload, writes the Track Record (metadata, then audio), probes
// the MP3 duration, queues a cover job and attaches a reference to the target playlist. The cover
// job is never awaited: the upload succeeds as soon as the reference is stored.
//
// # Cover Pool
//
// [CoverPool] runs a fixed number of workers over an unbounded FIFO queue. Each job searches
// artwork through a [CoverSearcher], rate limited with [rate.Limiter], and writes cover.jpeg.
// Any failure falls back to the placeholder image, so every Track Record ends up with a cover.
//
// # Library
//
// [Library] is the facade the HTTP server, the CLI and the in-process bot share. It combines the
// playlist store with the ingestor.
package tasks
