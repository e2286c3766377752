/*
PURPOSE:
  Generates the work items fed to the throttled executor: download URLs
  and upload payloads.

REQUIREMENTS:
  User-specified:
  - One download URL per (size, repetition), each with a distinct query
    parameter so caches cannot answer for the server.
  - Upload buffers grow linearly per tier; each tier is repeated to keep
    the link busy at that size.

  Implementation-discovered:
  - Sequences are lazy (iter.Seq) and can be ranged over more than once.
  - Payload content only has to resist trivial compression.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Runner)

ERROR HANDLING:
  - DownloadURLs rejects an unparseable server URL.

IMPLEMENTATION RULES:
  - No network access here.

USAGE:
  urls, err := workload.DownloadURLs(server.URL, []int{1500, 2000}, 4)
  for u := range urls { ... }

RELATED FILES:
  - internal/engine/runner.go
*/

package workload

import (
	"fmt"
	"iter"
	"math/rand/v2"
	"net/url"
	"strconv"
)

const (
	// DefaultTierSize is the payload growth per upload tier.
	DefaultTierSize = 200 * 1024
	// DefaultCopies is how many times each upload tier is sent.
	DefaultCopies = 10

	payloadChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// BaseURL resolves ref against the directory of serverURL, e.g.
// "http://h/speedtest/upload.php" + "latency.txt" -> "http://h/speedtest/latency.txt".
func BaseURL(serverURL, ref string) (string, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid server url %q: missing scheme or host", serverURL)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(r).String(), nil
}

// DownloadURLs yields <base>/random{N}x{N}.jpg?r={i} for every size N and
// every i in [0, iterations).
func DownloadURLs(serverURL string, sizes []int, iterations int) (iter.Seq[string], error) {
	// Validate once up front so the sequence itself cannot fail.
	if _, err := BaseURL(serverURL, "."); err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		for _, size := range sizes {
			for i := 0; i < iterations; i++ {
				ref := "random" + strconv.Itoa(size) + "x" + strconv.Itoa(size) + ".jpg?r=" + strconv.Itoa(i)
				u, _ := BaseURL(serverURL, ref)
				if !yield(u) {
					return
				}
			}
		}
	}, nil
}

// UploadPayloads yields, for tier t in 1..tiers, copies references to one
// buffer of t*tierSize random uppercase letters. The buffer of a tier is
// built once, when the sequence reaches it.
func UploadPayloads(tiers, tierSize, copies int) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for t := 1; t <= tiers; t++ {
			buf := randomPayload(t * tierSize)
			for c := 0; c < copies; c++ {
				if !yield(buf) {
					return
				}
			}
		}
	}
}

func randomPayload(size int) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = payloadChars[rand.IntN(len(payloadChars))]
	}
	return buf
}
