package cowkit_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gobeaver/cowkit"
	"github.com/gobeaver/cowkit/driver/memory"
	"github.com/gobeaver/cowkit/overlay"
)

func seededBase(files map[string]string) *memory.Adapter {
	ctx := context.Background()
	base := memory.New()
	for p, content := range files {
		_ = base.Write(ctx, p, strings.NewReader(content))
	}
	return base
}

func Example() {
	ctx := context.Background()
	base := seededBase(map[string]string{"greeting.txt": "hello from base"})

	ov := overlay.New(base)
	_ = ov.Write(ctx, "greeting.txt", strings.NewReader("hello from top"), cowkit.WithOverwrite(true))

	merged, _ := ov.ReadAll(ctx, "greeting.txt")
	original, _ := base.ReadAll(ctx, "greeting.txt")

	fmt.Println(string(merged))
	fmt.Println(string(original))
	// Output:
	// hello from top
	// hello from base
}

func ExampleNewReadOnlyFileSystem() {
	ctx := context.Background()
	ro := cowkit.NewReadOnlyFileSystem(memory.New())

	err := ro.Write(ctx, "file.txt", strings.NewReader("data"))
	fmt.Println(cowkit.IsReadOnlyError(err))

	var pathErr *cowkit.PathError
	if errors.As(err, &pathErr) {
		fmt.Println(pathErr.Op, pathErr.Path)
	}
	// Output:
	// true
	// write file.txt
}

func ExampleListWithSelector() {
	ctx := context.Background()
	base := seededBase(map[string]string{
		"doc.txt":    "text",
		"image.jpg":  "jpeg",
		"photo.jpg":  "jpeg",
		"data.json":  "json",
		"old/a.jpg":  "jpeg",
		"old/b.json": "json",
	})

	ov := overlay.New(base)
	_ = ov.Delete(ctx, "photo.jpg")

	files, _ := cowkit.ListWithSelector(ctx, ov, "", cowkit.Glob("*.jpg"), true)
	for i := range files {
		fmt.Println(files[i].Path)
	}
	// Unordered output:
	// image.jpg
	// old/a.jpg
}

func ExampleCalculateChecksum() {
	sum, _ := cowkit.CalculateChecksum(strings.NewReader("Hello, World!"), cowkit.ChecksumMD5)
	fmt.Println(sum)
	// Output:
	// 65a8e27d8879283831b664bd8b7f0ad4
}
