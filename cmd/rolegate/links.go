package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// linksCmd administra la tabla passphrase → rol sin pasar por HTTP.
func linksCmd(g *globals) *cobra.Command {
	links := &cobra.Command{
		Use:   "links",
		Short: "Administra los roles vinculados a passphrases",
	}

	links.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Lista las passphrases con roles vinculados",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.container(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			phrases, err := c.Registrar.Phrases(cmd.Context())
			if err != nil {
				return err
			}
			if len(phrases) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No passphrases are registered.")
				return nil
			}
			for _, p := range phrases {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	})

	links.AddCommand(&cobra.Command{
		Use:   "roles <phrase>",
		Short: "Lista los roles vinculados a una passphrase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.container(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			roles, err := c.Registrar.Roles(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, r := range roles {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.ID, r.Name)
			}
			return nil
		},
	})

	links.AddCommand(&cobra.Command{
		Use:   "add <phrase> <role-id>",
		Short: "Vincula un rol a una passphrase",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.container(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			role, created, err := c.Registrar.Link(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already linked to '%s'\n", role.Name, args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked %s to '%s'\n", role.Name, args[0])
			return nil
		},
	})

	links.AddCommand(&cobra.Command{
		Use:   "remove <phrase> <role-id>",
		Short: "Desvincula un rol de una passphrase",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.container(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			n, err := c.Registrar.Unlink(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed=%d\n", n)
			return nil
		},
	})

	return links
}
