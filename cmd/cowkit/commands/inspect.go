package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gobeaver/cowkit"
	"github.com/gobeaver/cowkit/internal/cli/output"
)

func newChecksumCmd(c *cli) *cobra.Command {
	var algorithms []string
	cmd := &cobra.Command{
		Use:   "checksum <path>",
		Short: "Compute checksums of a file",
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

			algs := make([]cowkit.ChecksumAlgorithm, len(algorithms))
			for i, a := range algorithms {
				algs[i] = cowkit.ChecksumAlgorithm(a)
			}
			sums, err := ov.Checksums(cmd.Context(), args[0], algs)
			if err != nil {
				return err
			}

			if p.Format() != output.FormatTable {
				return p.Print(sums)
			}
			table := output.NewTable("Algorithm", "Checksum")
			for _, a := range algs {
				table.AddRow(string(a), sums[a])
			}
			return p.Print(table)
		},
	}
	cmd.Flags().StringSliceVarP(&algorithms, "algorithm", "a", []string{string(cowkit.ChecksumSHA256)},
		"Algorithms to compute (md5, sha1, sha256, sha512, crc32, xxhash)")
	return cmd
}

func newURLCmd(c *cli) *cobra.Command {
	var (
		signed  bool
		upload  bool
		expires time.Duration
	)
	cmd := &cobra.Command{
		Use:   "url <path>",
		Short: "Print a public or pre-signed URL for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := c.open(cmd)
			if err != nil {
				return err
			}

			var u string
			switch {
			case upload:
				u, err = ov.SignedUploadURL(cmd.Context(), args[0], expires)
			case signed:
				u, err = ov.SignedURL(cmd.Context(), args[0], expires)
			default:
				u, err = ov.PublicURL(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
	cmd.Flags().BoolVar(&signed, "signed", false, "Generate a pre-signed download URL")
	cmd.Flags().BoolVar(&upload, "upload", false, "Generate a pre-signed upload URL for the top layer")
	cmd.Flags().DurationVar(&expires, "expires", 15*time.Minute, "Lifetime of pre-signed URLs")
	return cmd
}

// tombstoneView lists the paths hidden from the base layer.
type tombstoneView struct {
	Files       []string `json:"files" yaml:"files"`
	Directories []string `json:"directories" yaml:"directories"`
}

func (v tombstoneView) Headers() []string { return []string{"Kind", "Path"} }

func (v tombstoneView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Files)+len(v.Directories))
	for _, d := range v.Directories {
		rows = append(rows, []string{"dir", d})
	}
	for _, f := range v.Files {
		rows = append(rows, []string{"file", f})
	}
	return rows
}

func newTombstonesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tombstones",
		Short: "List base layer paths hidden by deletions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.printer(cmd)
			if err != nil {
				return err
			}
			ov, err := c.open(cmd)
			if err != nil {
				return err
			}

			files, err := ov.Tombstones().Files(cmd.Context())
			if err != nil {
				return err
			}
			dirs, err := ov.Tombstones().Directories(cmd.Context())
			if err != nil {
				return err
			}
			return p.Print(tombstoneView{Files: files.Sorted(), Directories: dirs.Sorted()})
		},
	}
}
