// Package cache memoizes expensive remote computations in local,
// content-addressed files.
//
// Every request is reduced to a Key, the SHA-256 digest of a length-prefixed
// encoding of its texts. A Store maps keys to JSON files under a base
// directory; DiskStore writes them atomically and LRUStore keeps hot entries
// in memory in front of it.
//
// Three caches sit on top of a Store:
//
//   - SingleCache maps one text to one Vector.
//   - BatchCache maps an ordered list of texts to one Matrix.
//   - FillCache keeps a DefinitionMap and generates only the names it lacks,
//     fanning them out over a bounded worker pool.
//
// The remote computation is supplied by the caller as an Embedder,
// BatchEmbedder or Generator and runs under a resilience.Invoker, by default
// a tiered retry that backs off on rate limits, timeouts and unavailability.
// A failed computation never produces a file.
//
// # Usage
//
//	store := cache.NewDiskStore(cache.DiskStoreConfig{Dir: dir})
//	single := cache.NewSingleCache(store)
//
//	vec, err := single.GetOrCompute(ctx, "hola", embedder)
//
// Each load and save is logged as "<op>: loaded: <path>" or
// "<op>: saved: <path>", where op is the name given with WithOp.
package cache
