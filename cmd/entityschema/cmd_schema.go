package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wI2L/jsondiff"

	"gihan9a/entityschema/internal/resolver"
	"gihan9a/entityschema/internal/schema"
	"gihan9a/entityschema/internal/store"
)

func (c *cli) resolveAt(st *store.Store, raw string) (schema.Node, error) {
	v, err := st.ParseVersion(raw)
	if err != nil {
		return nil, err
	}
	doc, err := resolver.Resolve(st.Baseline(), st.Patches(), v)
	if err != nil {
		return nil, err
	}
	if c.cfg.CheckRefs {
		if err := schema.CheckRefs(doc); err != nil {
			return nil, fmt.Errorf("schema for %s is inconsistent: %w", v, err)
		}
	}
	return doc, nil
}

func (c *cli) resolveCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "resolve <version|latest>",
		Short: "Print the effective schema at a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.loadStore()
			if err != nil {
				return err
			}
			doc, err := c.resolveAt(st, args[0])
			if err != nil {
				return err
			}
			data, err := schema.Encode(doc)
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if output != "" {
				if err := os.WriteFile(output, data, 0644); err != nil {
					return fmt.Errorf("error writing %s: %w", output, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Schema %s written to %s\n", args[0], output)
				return nil
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the schema to this file instead of stdout")
	return cmd
}

func (c *cli) diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <from> <to>",
		Short: "Print the JSON Patch turning one version's schema into another's",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.loadStore()
			if err != nil {
				return err
			}
			from, err := c.resolveAt(st, args[0])
			if err != nil {
				return err
			}
			to, err := c.resolveAt(st, args[1])
			if err != nil {
				return err
			}
			ops, err := jsondiff.Compare(from, to)
			if err != nil {
				return fmt.Errorf("error computing diff: %w", err)
			}
			if ops == nil {
				ops = jsondiff.Patch{}
			}
			return writeIndented(cmd.OutOrStdout(), ops)
		},
	}
}

func writeIndented(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func (c *cli) versionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List the versions at which the schema changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.loadStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if b := st.Manifest().BaselineVersion; !b.IsZero() {
				fmt.Fprintf(out, "%s\tbaseline\n", b)
			}
			for _, v := range st.Versions() {
				var sources []string
				for _, p := range st.PatchesAt(v) {
					src := p.Source
					if src == "" {
						src = "-"
					}
					sources = append(sources, src)
				}
				fmt.Fprintf(out, "%s\t%s\n", v, strings.Join(sources, ", "))
			}
			return nil
		},
	}
}

func (c *cli) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Resolve every version and verify that all $ref pointers resolve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.loadStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			failed := 0
			report := func(label string, err error) {
				if err != nil {
					failed++
					fmt.Fprintf(out, "FAIL\t%s\t%v\n", label, err)
					return
				}
				fmt.Fprintf(out, "ok\t%s\n", label)
			}

			label := "baseline"
			if b := st.Manifest().BaselineVersion; !b.IsZero() {
				label = b.String()
			}
			report(label, schema.CheckRefs(st.Baseline()))

			cache := resolver.NewCache(st.Baseline(), st.Patches())
			versions := st.Versions()
			for _, v := range versions {
				doc, err := cache.Resolve(v)
				if err == nil {
					err = schema.CheckRefs(doc)
				}
				report(v.String(), err)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d versions failed", failed, len(versions)+1)
			}
			return nil
		},
	}
}
