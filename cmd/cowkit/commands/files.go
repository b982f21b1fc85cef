package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gobeaver/cowkit"
	"github.com/gobeaver/cowkit/internal/cli/output"
)

// entryView is the serialised form of a listed or stat'ed entry.
type entryView struct {
	Index       int               `json:"index,omitempty" yaml:"index,omitempty"`
	Path        string            `json:"path" yaml:"path"`
	Type        string            `json:"type" yaml:"type"`
	Size        int64             `json:"size" yaml:"size"`
	ModTime     *time.Time        `json:"mod_time,omitempty" yaml:"mod_time,omitempty"`
	ContentType string            `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Visibility  string            `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func newEntryView(index int, fi cowkit.FileInfo) entryView {
	v := entryView{
		Index:       index,
		Path:        fi.Path,
		Type:        "file",
		Size:        fi.Size,
		ContentType: fi.ContentType,
		Visibility:  string(fi.Visibility),
		Metadata:    fi.Metadata,
	}
	if fi.IsDir {
		v.Type = "dir"
	}
	if !fi.ModTime.IsZero() {
		t := fi.ModTime
		v.ModTime = &t
	}
	return v
}

func (v entryView) modified() string {
	if v.ModTime == nil {
		return "-"
	}
	return v.ModTime.Format(time.DateTime)
}

type entryList []entryView

func (l entryList) Headers() []string {
	return []string{"#", "Type", "Path", "Size", "Visibility", "Modified"}
}

func (l entryList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		visibility := e.Visibility
		if visibility == "" {
			visibility = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(e.Index), e.Type, e.Path, strconv.FormatInt(e.Size, 10), visibility, e.modified(),
		})
	}
	return rows
}

func newLsCmd(c *cli) *cobra.Command {
	var (
		deep  bool
		match string
	)
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List the merged contents of a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}

			p, err := c.printer(cmd)
			if err != nil {
				return err
			}
			ov, err := c.open(cmd)
			if err != nil {
				return err
			}

			selector := cowkit.All()
			if match != "" {
				if selector, err = cowkit.CompileGlob(match); err != nil {
					return fmt.Errorf("invalid --match pattern: %w", err)
				}
			}

			listing := ov.Listing(cmd.Context(), dir, deep)
			entries := entryList{}
			for i, fi := range listing.All() {
				if selector.Match(&fi) {
					entries = append(entries, newEntryView(i, fi))
				}
			}
			if err := listing.Err(); err != nil {
				return err
			}
			return p.Print(entries)
		},
	}
	cmd.Flags().BoolVarP(&deep, "deep", "r", false, "List subdirectories recursively")
	cmd.Flags().StringVar(&match, "match", "", "Only show entries matching a glob pattern")
	return cmd
}

func newCatCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a file from whichever layer owns it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := c.open(cmd)
			if err != nil {
				return err
			}
			rc, err := ov.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer rc.Close()

			_, err = io.Copy(cmd.OutOrStdout(), rc)
			return err
		},
	}
}

func newPutCmd(c *cli) *cobra.Command {
	var (
		contentType string
		visibility  string
		force       bool
	)
	cmd := &cobra.Command{
		Use:   "put <path> [source]",
		Short: "Write a file to the top layer",
		Long: `Write a file to the top layer. The content is read from the local file
source, or from stdin when source is omitted or "-".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []cowkit.Option{cowkit.WithOverwrite(force)}
			if contentType != "" {
				opts = append(opts, cowkit.WithContentType(contentType))
			}
			if visibility != "" {
				v, err := parseVisibility(visibility)
				if err != nil {
					return err
				}
				opts = append(opts, cowkit.WithVisibility(v))
			}

			var src io.Reader = cmd.InOrStdin()
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				src = f
			}

			ov, err := c.open(cmd)
			if err != nil {
				return err
			}
			return ov.Write(cmd.Context(), args[0], src, opts...)
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type to store with the file")
	cmd.Flags().StringVar(&visibility, "visibility", "", "File visibility (public|private)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace a file already present in the top layer")
	return cmd
}

func newRmCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file, tombstoning it when the base layer holds it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := c.open(cmd)
			if err != nil {
				return err
			}
			return ov.Delete(cmd.Context(), args[0])
		},
	}
}

func newRmdirCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rmdir <path>",
		Short: "Delete a directory and everything below it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := c.open(cmd)
			if err != nil {
				return err
			}
			return ov.DeleteDir(cmd.Context(), args[0])
		},
	}
}

func newMkdirCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory in the top layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := c.open(cmd)
			if err != nil {
				return err
			}
			return ov.CreateDir(cmd.Context(), args[0])
		},
	}
}

func newMvCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <src> <dst>",
		Short: "Move a file; base files are copied up and tombstoned",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := c.open(cmd)
			if err != nil {
				return err
			}
			return ov.Move(cmd.Context(), args[0], args[1])
		},
	}
}

func newCpCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "cp <src> <dst>",
		Short: "Copy a file into the top layer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := c.open(cmd)
			if err != nil {
				return err
			}
			return ov.Copy(cmd.Context(), args[0], args[1])
		},
	}
}

func newStatCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Show the attributes of a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.printer(cmd)
			if err != nil {
				return err
			}
			ov, err := c.open(cmd)
			if err != nil {
				return err
			}
			info, err := ov.Stat(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			view := newEntryView(0, *info)
			if p.Format() != output.FormatTable {
				return p.Print(view)
			}
			pairs := [][2]string{
				{"Path", view.Path},
				{"Type", view.Type},
				{"Size", strconv.FormatInt(view.Size, 10)},
				{"Modified", view.modified()},
			}
			if view.ContentType != "" {
				pairs = append(pairs, [2]string{"Content-Type", view.ContentType})
			}
			if view.Visibility != "" {
				pairs = append(pairs, [2]string{"Visibility", view.Visibility})
			}
			return output.PrintPairs(cmd.OutOrStdout(), pairs)
		},
	}
}

func newChmodCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "chmod <path> <public|private>",
		Short: "Change the visibility of a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseVisibility(args[1])
			if err != nil {
				return err
			}
			ov, err := c.open(cmd)
			if err != nil {
				return err
			}
			return ov.SetVisibility(cmd.Context(), args[0], v)
		},
	}
}

func parseVisibility(s string) (cowkit.Visibility, error) {
	switch v := cowkit.Visibility(s); v {
	case cowkit.Public, cowkit.Private:
		return v, nil
	}
	return "", fmt.Errorf("invalid visibility %q (valid: public, private)", s)
}
