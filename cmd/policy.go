package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/eric8810/authy/internal/authresolver"
	"github.com/eric8810/authy/internal/client"
)

var policyCmd = &cobra.Command{
	Use:     "policy",
	GroupID: "access",
	Short:   "Manage access policies",
}

var (
	policyAllow       []string
	policyDeny        []string
	policyDescription string
	policyRunOnly     bool
)

var policyCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new policy",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyCreate,
}

var policyShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a policy's patterns and metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyShow,
}

var policyUpdateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Update a policy's patterns or description",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyUpdate,
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all policies",
	Args:  cobra.NoArgs,
	RunE:  runPolicyList,
}

var policyRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a policy",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyRemove,
}

var policyTestCmd = &cobra.Command{
	Use:   "test <scope> <secret>",
	Short: "Test whether a scope can read a secret",
	Args:  cobra.ExactArgs(2),
	RunE:  runPolicyTest,
}

func init() {
	policyCreateCmd.Flags().StringSliceVar(&policyAllow, "allow", nil, "glob pattern allowed to be read (repeatable)")
	policyCreateCmd.Flags().StringSliceVar(&policyDeny, "deny", nil, "glob pattern denied even if allowed (repeatable)")
	policyCreateCmd.Flags().StringVar(&policyDescription, "description", "", "human-readable description")
	policyCreateCmd.Flags().BoolVar(&policyRunOnly, "run-only", false, "forbid exposing values read through this scope, except via `run`")

	policyUpdateCmd.Flags().StringSliceVar(&policyAllow, "allow", nil, "replace the allow pattern set")
	policyUpdateCmd.Flags().StringSliceVar(&policyDeny, "deny", nil, "replace the deny pattern set")
	policyUpdateCmd.Flags().StringVar(&policyDescription, "description", "", "replace the description")

	policyCmd.AddCommand(policyCreateCmd, policyShowCmd, policyUpdateCmd, policyListCmd, policyRemoveCmd, policyTestCmd)
	rootCmd.AddCommand(policyCmd)
}

func runPolicyCreate(cmd *cobra.Command, args []string) error {
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

	var description *string
	if policyDescription != "" {
		description = &policyDescription
	}
	if err := c.CreatePolicy(name, policyAllow, policyDeny, description, policyRunOnly); err != nil {
		return err
	}
	statusf(colorSuccess, "Policy %q created.\n", name)
	return nil
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
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

	p, err := c.GetPolicy(name)
	if err != nil {
		return err
	}

	payload(fmt.Sprintf("Policy: %s", p.Name))
	if p.Description != nil {
		payload(fmt.Sprintf("Description: %s", *p.Description))
	}
	payload("Allow patterns:")
	for _, pat := range p.Allow {
		payload("  + " + pat)
	}
	payload("Deny patterns:")
	if len(p.Deny) == 0 {
		payload("  (none)")
	} else {
		for _, pat := range p.Deny {
			payload("  - " + pat)
		}
	}
	payload(fmt.Sprintf("Run-only: %v", p.RunOnly))
	payload(fmt.Sprintf("Created: %s", p.CreatedAt.Format("2006-01-02T15:04:05Z07:00")))
	payload(fmt.Sprintf("Modified: %s", p.ModifiedAt.Format("2006-01-02T15:04:05Z07:00")))
	return nil
}

func runPolicyUpdate(cmd *cobra.Command, args []string) error {
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

	var allow, deny []string
	if cmd.Flags().Changed("allow") {
		allow = policyAllow
	}
	if cmd.Flags().Changed("deny") {
		deny = policyDeny
	}
	var description *string
	if policyDescription != "" {
		description = &policyDescription
	}

	if err := c.UpdatePolicy(name, allow, deny, description); err != nil {
		return err
	}
	statusf(colorSuccess, "Policy %q updated.\n", name)
	return nil
}

func runPolicyList(cmd *cobra.Command, args []string) error {
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

	policies, err := c.ListPolicies()
	if err != nil {
		return err
	}
	if len(policies) == 0 {
		infof("No policies defined.\n")
		return nil
	}

	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := policies[name]
		desc := "(no description)"
		if p.Description != nil {
			desc = *p.Description
		}
		payload(fmt.Sprintf("%-20s allow:%d deny:%d — %s", name, len(p.Allow), len(p.Deny), desc))
	}
	return nil
}

func runPolicyRemove(cmd *cobra.Command, args []string) error {
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

	if err := c.RemovePolicy(name); err != nil {
		return err
	}
	statusf(colorSuccess, "Policy %q removed.\n", name)
	return nil
}

func runPolicyTest(cmd *cobra.Command, args []string) error {
	scope, name := args[0], args[1]
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

	allowed, err := c.TestPolicy(scope, name)
	if err != nil {
		return err
	}
	if allowed {
		payload(fmt.Sprintf("ALLOWED: %q can read %q", scope, name))
	} else {
		payload(fmt.Sprintf("DENIED: %q cannot read %q", scope, name))
	}
	return nil
}
