// Package cowkit provides the storage abstraction behind a copy-on-write
// overlay filesystem: an immutable base layer holding existing data, a
// mutable top layer receiving every change, and soft-delete markers
// ("tombstones") that hide base entries without touching them.
//
// This package defines the shared contract. The overlay itself lives in
// github.com/gobeaver/cowkit/overlay and the storage backends live under
// driver/:
//
//   - Local filesystem (github.com/gobeaver/cowkit/driver/local)
//   - Amazon S3 (github.com/gobeaver/cowkit/driver/s3)
//   - In-memory (github.com/gobeaver/cowkit/driver/memory)
//   - ZIP archives, read-only (github.com/gobeaver/cowkit/driver/zip)
//
// # Basic Usage
//
//	base, err := local.New("./storage")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Top defaults to an in-memory layer
//	ov := overlay.New(base)
//
//	// Writes land in the top layer, base stays untouched
//	err = ov.Write(ctx, "config.json", strings.NewReader(`{"debug":true}`))
//
//	// Deleting a base file records a tombstone instead
//	err = ov.Delete(ctx, "legacy.txt")
//
//	// Listings merge both layers
//	listing := ov.Listing(ctx, "", true)
//	for _, fi := range listing.All() {
//	    fmt.Println(fi.Path)
//	}
//
// # Optional Capabilities
//
// Drivers may implement optional capability interfaces. The overlay probes
// its layers for them and uses native operations where both sides allow it:
//
//	if copier, ok := fs.(cowkit.CanCopy); ok {
//	    err := copier.Copy(ctx, "source.txt", "dest.txt")
//	}
//
//	if signer, ok := fs.(cowkit.CanSignURL); ok {
//	    url, err := signer.SignedURL(ctx, "file.pdf", 15*time.Minute)
//	}
//
// # Read-only Base
//
// [ReadOnlyFileSystem] blocks every mutation with [ErrReadOnly]. The overlay
// wraps its base layer in one, so a bug in the overlay cannot write through
// to pre-existing data.
//
// # File Selection
//
// The [FileSelector] interface filters listings:
//
//	files, err := cowkit.ListWithSelector(ctx, ov, "", cowkit.Glob("**/*.json"), true)
//
// # Error Handling
//
// Backend errors are wrapped in [PathError] or [TransferError] together with
// the sentinel of the operation that failed:
//
//	err := ov.Move(ctx, "a.txt", "b.txt")
//	if errors.Is(err, cowkit.ErrUnableToMove) {
//	    // inspect the cause with errors.Is / errors.As
//	}
//
// # Configuration
//
// [GetConfig] reads BEAVER_COWKIT_* environment variables:
//
//	BEAVER_COWKIT_BASE_DRIVER=s3
//	BEAVER_COWKIT_BASE_S3_BUCKET=my-bucket
//	BEAVER_COWKIT_TOP_DRIVER=local
//	BEAVER_COWKIT_TOP_LOCAL_PATH=/var/lib/overlay
package cowkit
