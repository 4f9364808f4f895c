// Package bundlecrypt fetches content-addressed asset bundles from a
// content-delivery endpoint and reconstructs their plaintext bytes.
//
// # Overview
//
// Bundles are listed in a JSON catalog of descriptors. A bundle whose
// compression mode selects the container format carries a fixed 12-byte
// header and a 16-byte payload digest in front of its payload; encrypted
// payloads use a bespoke cascading stream cipher derived from ChaCha20,
// keyed per bundle from catalog metadata. Everything else is stored
// verbatim.
//
// The Downloader drives the whole set: it verifies files that already
// exist on disk by size, downloads and decodes the rest under bounded
// concurrency, and retries failed bundles in additional passes with
// concurrency reduced to one.
//
// # Basic Usage
//
//	transport, err := bundlecrypt.NewHTTPTransport("https://cdn.example.com/assets")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	dl, err := bundlecrypt.NewDownloader(&bundlecrypt.Config{
//	    Transport:   transport,
//	    OutputFS:    outputFS,
//	    Concurrency: 16,
//	    MaxPasses:   10,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := dl.Run(ctx, catalog.Bundles)
//
// # Compatibility
//
// The cipher is not standard ChaCha20: each 512-byte mega-block derives a
// fresh nonce from a 64-byte pool with counter-driven rotation arithmetic,
// then chains eight 64-byte sub-blocks with decreasing round counts. The
// construction is reproduced bit-exactly from the wire format; none of its
// constants can be changed without losing the ability to decode remote
// content.
package bundlecrypt
