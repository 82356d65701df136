package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"nodegraph/application/ports"
	"nodegraph/domain/core/entities"
	"nodegraph/domain/core/valueobjects"

	"github.com/spf13/cobra"
)

var treeName string

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the stored subtree under every node with a given name",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		container, cleanup, err := openContainer(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		roots, err := container.Store.FindByName(ctx, treeName)
		if err != nil {
			return err
		}
		if len(roots) == 0 {
			return fmt.Errorf("no node named %q", treeName)
		}
		for _, root := range roots {
			if err := printTree(ctx, cmd.OutOrStdout(), container.Store, root); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	treeCmd.Flags().StringVarP(&treeName, "name", "n", "", "Name of the root node")
	_ = treeCmd.MarkFlagRequired("name")
}

// printTree writes root and its descendants, two spaces per level. A child
// id with no stored node prints as <missing id>; a node already on the
// current path prints as <cycle id> and is not descended into.
func printTree(ctx context.Context, out io.Writer, store ports.NodeStore, root *entities.Node) error {
	return walk(ctx, out, store, root, 0, map[valueobjects.NodeID]bool{})
}

func walk(ctx context.Context, out io.Writer, store ports.NodeStore, node *entities.Node, depth int, path map[valueobjects.NodeID]bool) error {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(out, "%s%s (%s) %s\n", indent, node.Name(), node.Type(), node.ID())

	path[node.ID()] = true
	defer delete(path, node.ID())

	childIDs := node.Children()
	if len(childIDs) == 0 {
		return nil
	}

	found, err := store.FindByIDs(ctx, childIDs)
	if err != nil {
		return fmt.Errorf("load children of %s: %w", node.ID(), err)
	}
	byID := make(map[valueobjects.NodeID]*entities.Node, len(found))
	for _, child := range found {
		byID[child.ID()] = child
	}

	for _, id := range childIDs {
		child, ok := byID[id]
		switch {
		case !ok:
			fmt.Fprintf(out, "%s  <missing %s>\n", indent, id)
		case path[id]:
			fmt.Fprintf(out, "%s  <cycle %s>\n", indent, id)
		default:
			if err := walk(ctx, out, store, child, depth+1, path); err != nil {
				return err
			}
		}
	}
	return nil
}
