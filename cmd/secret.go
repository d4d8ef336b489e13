package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eric8810/authy/internal/authresolver"
	"github.com/eric8810/authy/internal/client"
)

var (
	storeForce       bool
	storeTags        []string
	storeDescription string
)

var storeCmd = &cobra.Command{
	Use:     "store <name> [value]",
	GroupID: "secrets",
	Short:   "Store a secret, prompting for its value if not given",
	Args:    cobra.RangeArgs(1, 2),
	RunE:    runStore,
}

var getScope string

var getCmd = &cobra.Command{
	Use:     "get <name>",
	GroupID: "secrets",
	Short:   "Retrieve a secret's value",
	Args:    cobra.ExactArgs(1),
	RunE:    runGet,
}

var listScope string

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "secrets",
	Short:   "List secret names",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	GroupID: "secrets",
	Short:   "Remove a secret",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

var rotateCmd = &cobra.Command{
	Use:     "rotate <name> [value]",
	GroupID: "secrets",
	Short:   "Rotate a secret to a new value, bumping its version",
	Args:    cobra.RangeArgs(1, 2),
	RunE:    runRotate,
}

func init() {
	storeCmd.Flags().BoolVar(&storeForce, "force", false, "overwrite an existing secret")
	storeCmd.Flags().StringSliceVar(&storeTags, "tags", nil, "comma-separated tags to attach to the secret")
	storeCmd.Flags().StringVar(&storeDescription, "description", "", "human-readable description to attach to the secret")
	getCmd.Flags().StringVar(&getScope, "scope", "", "policy scope to read through (default: token's own scope, if any)")
	listCmd.Flags().StringVar(&listScope, "scope", "", "policy scope to filter names through")

	rootCmd.AddCommand(storeCmd, getCmd, listCmd, removeCmd, rotateCmd)
}

func runStore(cmd *cobra.Command, args []string) error {
	name := args[0]
	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	key, ctx, err := authresolver.Resolve(paths, true, authresolver.PromptHidden)
	if err != nil {
		return err
	}
	c, err := client.FromContext(paths, key, ctx)
	if err != nil {
		return err
	}

	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		value, err = authresolver.PromptHidden(fmt.Sprintf("Enter value for %q", name))
		if err != nil {
			return err
		}
	}

	var description *string
	if cmd.Flags().Changed("description") {
		description = &storeDescription
	}

	if err := c.StoreWithMetadata(name, value, storeForce, storeTags, description); err != nil {
		return err
	}
	statusf(colorSuccess, "Secret %q stored.\n", name)
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	name := args[0]
	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	key, ctx, err := authresolver.Resolve(paths, false, authresolver.PromptHidden)
	if err != nil {
		return err
	}
	c, err := client.FromContext(paths, key, ctx)
	if err != nil {
		return err
	}

	scope := getScope
	if scope == "" && ctx.Scope != nil {
		scope = *ctx.Scope
	}

	value, ok, err := c.GetScoped(name, scope, ctx.RunOnly)
	if err != nil {
		return err
	}
	if !ok {
		return notFoundError(name)
	}
	payload(value)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	key, ctx, err := authresolver.Resolve(paths, false, authresolver.PromptHidden)
	if err != nil {
		return err
	}
	c, err := client.FromContext(paths, key, ctx)
	if err != nil {
		return err
	}

	scope := listScope
	if scope == "" && ctx.Scope != nil {
		scope = *ctx.Scope
	}

	names, err := c.List(scope)
	if err != nil {
		return err
	}
	for _, name := range names {
		payload(name)
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	name := args[0]
	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	key, ctx, err := authresolver.Resolve(paths, true, authresolver.PromptHidden)
	if err != nil {
		return err
	}
	c, err := client.FromContext(paths, key, ctx)
	if err != nil {
		return err
	}

	existed, err := c.Remove(name)
	if err != nil {
		return err
	}
	if !existed {
		return notFoundError(name)
	}
	statusf(colorSuccess, "Secret %q removed.\n", name)
	return nil
}

func runRotate(cmd *cobra.Command, args []string) error {
	name := args[0]
	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	key, ctx, err := authresolver.Resolve(paths, true, authresolver.PromptHidden)
	if err != nil {
		return err
	}
	c, err := client.FromContext(paths, key, ctx)
	if err != nil {
		return err
	}

	var newValue string
	if len(args) == 2 {
		newValue = args[1]
	} else {
		newValue, err = authresolver.PromptHidden(fmt.Sprintf("Enter new value for %q", name))
		if err != nil {
			return err
		}
	}

	version, err := c.Rotate(name, newValue)
	if err != nil {
		return err
	}
	statusf(colorSuccess, "Secret %q rotated to v%d.\n", name, version)
	return nil
}
