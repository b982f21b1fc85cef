// Package overlay provides a copy-on-write view over two cowkit backends.
//
// The base layer holds pre-existing data and is never written. It is wrapped
// in a cowkit.ReadOnlyFileSystem on construction. Every mutation lands in the
// top layer, which defaults to an in-memory driver. Deleting something that
// only exists in the base records a tombstone inside the top layer instead of
// touching the base:
//
//	base, _ := local.New("/srv/fixtures")
//	ov := overlay.New(base)
//
//	ov.WriteBytes(ctx, "config.yaml", []byte("debug: true\n"))
//	ov.Delete(ctx, "legacy.txt")       // base untouched, tombstone written
//	ov.DeleteDir(ctx, "cache")         // hides the whole base subtree
//
//	for i, entry := range ov.Listing(ctx, "/", true).All() {
//		fmt.Println(i, entry.Path)
//	}
//
// Tombstones are two JSON objects kept in the top layer, one for files and
// one for directory prefixes. Their locations are configurable and they never
// show up in listings.
package overlay
