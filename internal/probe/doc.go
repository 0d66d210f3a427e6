// Package probe answers stream and format questions about a single media file.
//
// A Prober pairs an ffprobe Invoker with a probecache.Cache. Each request opens
// a Session for one FileReference; the session loads metadata at most once
// and then serves Stream, Streams and Format lookups from memory.
//
// Selectors use the "<type>:<index>" form, where type is one of v (video),
// a (audio), s (subtitle), d (data), t (attachment) or i (any stream) and the
// index counts only streams of that type.
package probe
