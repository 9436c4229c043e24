/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/bmlfuzz/pkg/codec"
	"github.com/ssargent/bmlfuzz/pkg/container"
	"github.com/ssargent/bmlfuzz/pkg/loader"
)

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "List the records of a binary markup document",
	Long: `Decode a binary markup stream, or a stream part of a container, and
print one line per record. Records decoded before a malformed one are
still listed. With --validate the document is also run through the
reference loader.

Examples:
  bmlfuzz decode page.baml
  bmlfuzz decode --validate fuzz/ui/__failedFuzz3/page_fuzzed.baml
  bmlfuzz decode --part ui/page.baml bundle.zip`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		part, _ := cmd.Flags().GetString("part")
		validate, _ := cmd.Flags().GetBool("validate")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		return decodeDocument(cmd, data, part, validate)
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().String("part", "", "Container part to decode (default: first .baml part)")
	decodeCmd.Flags().Bool("validate", false, "Also run the reference loader over the stream")
}

func decodeDocument(cmd *cobra.Command, data []byte, part string, validate bool) error {
	out := cmd.OutOrStdout()

	if container.IsContainer(data) {
		stream, name, err := containerStream(data, part)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Part %s (%d bytes)\n", name, len(stream))
		data = stream
	}

	records, decodeErr := codec.DecodeStream(data)
	if err := codec.Dump(out, records); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d records, %d bytes\n", len(records), codec.StreamSize(records))
	if decodeErr != nil {
		return fmt.Errorf("decode failed: %w", decodeErr)
	}

	if validate {
		doc, err := loader.NewStreamLoader().Parse(cmd.Context(), data)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		printDocument(out, doc)
	}
	return nil
}

func containerStream(data []byte, part string) ([]byte, string, error) {
	c, err := container.Open(data)
	if err != nil {
		return nil, "", err
	}
	if part == "" {
		parts := c.Find(func(name string, _ []byte) bool {
			return strings.HasSuffix(strings.ToLower(name), loader.DefaultPartSuffix)
		})
		if len(parts) == 0 {
			return nil, "", errors.New("container has no stream part")
		}
		part = parts[0]
	}
	stream, err := c.Part(part)
	if err != nil {
		return nil, "", err
	}
	return stream, part, nil
}

func printDocument(w io.Writer, doc *loader.Document) {
	fmt.Fprintf(w, "%s: %d elements, depth %d, %d connection ids\n",
		passedColor.Sprint("valid"), doc.Elements, doc.MaxDepth, len(doc.ConnectionIDs))
	printTable(w, "assemblies", doc.Assemblies)
	printTable(w, "types", doc.Types)
	printTable(w, "attributes", doc.Attributes)
	printTable(w, "strings", doc.Strings)
}

func printTable(w io.Writer, title string, table map[uint16]string) {
	if len(table) == 0 {
		return
	}
	ids := make([]uint16, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fmt.Fprintf(w, "%s:\n", title)
	for _, id := range ids {
		fmt.Fprintf(w, "  %5d  %q\n", id, table[id])
	}
}
