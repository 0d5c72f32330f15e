package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/ssargent/fxtree/pkg/fxtree"
)

// indexCmd groups subcommands that operate directly on a raw .fxt file
// through pkg/fxtree, independent of the Bitcask store the rest of the CLI
// talks to.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Operate on a raw B+Tree index file",
	Long: `Operate directly on a B+Tree index file (.fxt) through pkg/fxtree.

Unlike put/get/delete, which go through the Bitcask-style KV store, these
subcommands give CLI access to the index file format itself: insert,
search, range, delete, and stat.`,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.PersistentFlags().String("file", "./index.fxt", "Path to the index file")
}

func openIndexFile(cmd *cobra.Command) (*fxtree.Tree, error) {
	path, _ := cmd.Flags().GetString("file")
	return fxtree.Open(path, false)
}

var indexInsertCmd = &cobra.Command{
	Use:   "insert <key> <value>",
	Short: "Insert a key/value pair into the index",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		value, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			cmd.Printf("Error: value must be a 32-bit integer: %v\n", err)
			return
		}

		t, err := openIndexFile(cmd)
		if err != nil {
			cmd.Printf("Error opening index file: %v\n", err)
			return
		}
		defer t.Close()

		switch t.Insert(fxtree.NewKey(args[0]), int32(value)) {
		case fxtree.StatusOK:
			cmd.Printf("inserted %s=%d\n", args[0], value)
		case fxtree.StatusDuplicateKey:
			cmd.Printf("key %s already exists\n", args[0])
		}
	},
}

var indexSearchCmd = &cobra.Command{
	Use:   "search <key>",
	Short: "Look up a single key in the index",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t, err := openIndexFile(cmd)
		if err != nil {
			cmd.Printf("Error opening index file: %v\n", err)
			return
		}
		defer t.Close()

		status, value := t.Search(fxtree.NewKey(args[0]))
		switch {
		case status == fxtree.StatusNotFound:
			cmd.Printf("key %s not found\n", args[0])
		case status == 0:
			cmd.Printf("%s=%d\n", args[0], value)
		default:
			cmd.Printf("key %s not found (nearest compare=%d)\n", args[0], status)
		}
	},
}

var indexDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a key from the index",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t, err := openIndexFile(cmd)
		if err != nil {
			cmd.Printf("Error opening index file: %v\n", err)
			return
		}
		defer t.Close()

		if t.Remove(fxtree.NewKey(args[0])) == fxtree.StatusNotFound {
			cmd.Printf("key %s not found\n", args[0])
			return
		}
		cmd.Printf("removed %s\n", args[0])
	},
}

var indexRangeCmd = &cobra.Command{
	Use:   "range <start> <end>",
	Short: "Scan a bounded key range from the index",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		t, err := openIndexFile(cmd)
		if err != nil {
			cmd.Printf("Error opening index file: %v\n", err)
			return
		}
		defer t.Close()

		left := fxtree.NewKey(args[0])
		right := fxtree.NewKey(args[1])
		for {
			out, hasMore, resumeFrom, status := t.SearchRange(left, right, limit)
			if status < 0 {
				cmd.Printf("invalid range\n")
				return
			}
			for _, rec := range out {
				cmd.Printf("%s=%d\n", rec.Key.String(), rec.Value)
			}
			if !hasMore {
				return
			}
			left = resumeFrom
		}
	},
}

var indexStatCmd = &cobra.Command{
	Use:   "stat",
	Short: "Print the index file's header",
	Run: func(cmd *cobra.Command, args []string) {
		t, err := openIndexFile(cmd)
		if err != nil {
			cmd.Printf("Error opening index file: %v\n", err)
			return
		}
		defer t.Close()

		m := t.Meta()
		cmd.Printf("order=%d height=%d internal_nodes=%d leaf_nodes=%d slot=%d root_offset=%d\n",
			m.Order, m.Height, m.InternalNodeNum, m.LeafNodeNum, m.Slot, m.RootOffset)
	},
}

func init() {
	indexCmd.AddCommand(indexInsertCmd)
	indexCmd.AddCommand(indexSearchCmd)
	indexCmd.AddCommand(indexDeleteCmd)
	indexCmd.AddCommand(indexRangeCmd)
	indexCmd.AddCommand(indexStatCmd)

	indexRangeCmd.Flags().Int("limit", 100, "Maximum records to return")
}
