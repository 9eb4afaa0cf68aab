package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-math-translator/internal/document"
	"github.com/nerdneilsfield/go-math-translator/pkg/mathmask"
)

func newMaskCommand(opts *rootOptions) *cobra.Command {
	var onlyTable bool

	cmd := &cobra.Command{
		Use:   "mask <input>",
		Short: "只做掩码，打印掩码后的文本和占位符表",
		Long:  "读取文档并掩码其中的数学片段，不调用任何翻译提供商。",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := document.Read(args[0])
			if err != nil {
				return err
			}

			masked := mathmask.Mask(doc.Text)
			w := cmd.OutOrStdout()
			if !onlyTable {
				fmt.Fprintln(w, masked.Text)
				fmt.Fprintln(w)
			}
			renderPlaceholders(w, masked.Map)
			return nil
		},
	}

	cmd.Flags().BoolVar(&onlyTable, "table-only", false, "只打印占位符表")
	return cmd
}

func renderPlaceholders(w io.Writer, pm *mathmask.PlaceholderMap) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Token", "Class", "Original"})
	for _, p := range pm.Entries() {
		t.AppendRow(table.Row{p.Index, p.Token, p.Class, strings.ReplaceAll(p.Original, "\n", `\n`)})
	}
	t.AppendFooter(table.Row{"", "", "Total", pm.Len()})
	t.Render()
}

func newPatternsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "列出数学片段的识别类别",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Priority", "Class", "Matches"})
			for _, c := range mathmask.DefaultCatalog().Classes() {
				t.AppendRow(table.Row{int(c), c.String(), c.Description()})
			}
			t.Render()
		},
	}
}
