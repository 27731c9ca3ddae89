// Command avltool is a small operator CLI over a mavl tree: point it at a store directory and
// get/put/delete keys, inspect the current root hash, or force a version save.
package main

import "context"
import "fmt"
import "os"

import "github.com/spf13/cobra"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dataDir string
	var inMemory bool

	root := &cobra.Command{
		Use:   "avltool",
		Short: "Inspect and mutate a mavl tree from the command line",
	}

	root.PersistentFlags().StringVar(&dataDir, "data", "./mavl-data", "directory backing the tree's store")
	root.PersistentFlags().BoolVar(&inMemory, "in-memory", false, "use a throwaway in-memory store instead of the persistent memory-mapped one")

	root.AddCommand(newGetCmd(&dataDir, &inMemory))
	root.AddCommand(newPutCmd(&dataDir, &inMemory))
	root.AddCommand(newDelCmd(&dataDir, &inMemory))
	root.AddCommand(newRootHashCmd(&dataDir, &inMemory))
	root.AddCommand(newSaveCmd(&dataDir, &inMemory))

	return root
}

func newGetCmd(dataDir *string, useMemory *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored at key in the latest saved version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			tree, closeStore, err := openTree(*dataDir, *useMemory)
			if err != nil { return err }
			defer closeStore()

			key, err := argKey(args[0])
			if err != nil { return err }

			_, value, found, err := tree.Get(ctx, key)
			if err != nil { return err }
			if ! found {
				return fmt.Errorf("key %q not found at version %d", args[0], tree.Version().Get())
			}

			fmt.Println(string(value.Bytes()))
			return nil
		},
	}
}

func newPutCmd(dataDir *string, useMemory *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Insert or overwrite key, then save a new version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			tree, closeStore, err := openTree(*dataDir, *useMemory)
			if err != nil { return err }
			defer closeStore()

			key, err := argKey(args[0])
			if err != nil { return err }

			value, err := argKey(args[1])
			if err != nil { return err }

			existed, err := tree.Insert(ctx, key, value)
			if err != nil { return err }

			version, err := tree.Save(ctx)
			if err != nil { return err }

			hash, _ := tree.SavedHash()
			fmt.Printf("saved version %d, root %x (existed=%v)\n", version.Get(), hash, existed)
			return nil
		},
	}
}

func newDelCmd(dataDir *string, useMemory *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Remove key, then save a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			tree, closeStore, err := openTree(*dataDir, *useMemory)
			if err != nil { return err }
			defer closeStore()

			key, err := argKey(args[0])
			if err != nil { return err }

			existed, err := tree.Remove(ctx, key)
			if err != nil { return err }
			if ! existed {
				return fmt.Errorf("key %q not found", args[0])
			}

			version, err := tree.Save(ctx)
			if err != nil { return err }

			hash, _ := tree.SavedHash()
			fmt.Printf("saved version %d, root %x\n", version.Get(), hash)
			return nil
		},
	}
}

func newRootHashCmd(dataDir *string, useMemory *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "root",
		Short: "Print the latest saved version and its root hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, closeStore, err := openTree(*dataDir, *useMemory)
			if err != nil { return err }
			defer closeStore()

			hash, ok := tree.SavedHash()
			if ! ok {
				fmt.Println("tree has no saved versions yet")
				return nil
			}

			fmt.Printf("version %d, root %x, size %d\n", tree.Version().Get(), hash, tree.Size().Get())
			return nil
		},
	}
}

func newSaveCmd(dataDir *string, useMemory *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Force a save of the current working tree, even with no pending mutations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			tree, closeStore, err := openTree(*dataDir, *useMemory)
			if err != nil { return err }
			defer closeStore()

			version, err := tree.Save(ctx)
			if err != nil { return err }

			hash, _ := tree.SavedHash()
			fmt.Printf("saved version %d, root %x\n", version.Get(), hash)
			return nil
		},
	}
}
