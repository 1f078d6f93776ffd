package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/bibtex"
	"github.com/konsulin-care/pubcraft-editor-sub000/internal/pdfref"
)

var (
	bibParseAdd   bool
	bibFromPDFAdd bool
)

func init() {
	bibParseCmd.Flags().BoolVar(&bibParseAdd, "add", false, "Append parsed entries to the draft references")
	bibFromPDFCmd.Flags().BoolVar(&bibFromPDFAdd, "add", false, "Append the drafted entry to the draft references")

	bibCmd.AddCommand(bibParseCmd)
	bibCmd.AddCommand(bibExportCmd)
	bibCmd.AddCommand(bibKeysCmd)
	bibCmd.AddCommand(bibFromPDFCmd)
	rootCmd.AddCommand(bibCmd)
}

var bibCmd = &cobra.Command{
	Use:   "bib",
	Short: "Manage the draft bibliography",
}

var bibParseCmd = &cobra.Command{
	Use:   "parse <file.bib>",
	Short: "Parse a BibTeX file",
	Long: `Parse a BibTeX file into reference records.

Entries missing a citation key, title, or author are dropped. With
--add, parsed entries are appended to the draft references.`,
	Args: cobra.ExactArgs(1),
	RunE: runBibParse,
}

func runBibParse(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		exitWithError(ExitDataError, "reading %s: %v", args[0], err)
	}
	refs := bibtex.Parse(string(data))

	if bibParseAdd {
		root := mustFindWorkspace()
		kv := mustOpenStore(root)
		defer kv.Close()
		drafts := newDraftStore(kv)

		d := mustLoadDraft(drafts)
		d.References = append(d.References, refs...)
		if err := drafts.Save(d); err != nil {
			exitWithError(ExitError, "saving draft: %v", err)
		}
	}

	if humanOutput {
		for _, r := range refs {
			outputHuman("%s: %s (%s, %s)\n", r.ID, r.Title, r.Author, r.Year)
		}
		return nil
	}
	return outputJSON(refs)
}

var bibExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Serialize the draft references as BibTeX",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := mustFindWorkspace()
		kv := mustOpenStore(root)
		defer kv.Close()

		d := mustLoadDraft(newDraftStore(kv))
		// BibTeX is the output format here, in both modes
		outputHuman("%s", bibtex.SerializeAll(d.References))
		return nil
	},
}

// CitationReport pairs a cited key with whether the bibliography defines it.
type CitationReport struct {
	Key     string `json:"key"`
	Defined bool   `json:"defined"`
}

var bibKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List citation keys used in the draft markdown",
	Long: `List the [@key] citations in the draft markdown, reporting whether each
key resolves against the draft references.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := mustFindWorkspace()
		kv := mustOpenStore(root)
		defer kv.Close()

		d := mustLoadDraft(newDraftStore(kv))
		keys := bibtex.MarkdownCitations(d.Markdown)

		report := make([]CitationReport, 0, len(keys))
		for _, key := range keys {
			_, defined := bibtex.Lookup(d.References, key)
			report = append(report, CitationReport{Key: key, Defined: defined})
		}

		if humanOutput {
			for _, r := range report {
				mark := "ok"
				if !r.Defined {
					mark = "undefined"
				}
				outputHuman("%s\t%s\n", r.Key, mark)
			}
			return nil
		}
		return outputJSON(report)
	},
}

var bibFromPDFCmd = &cobra.Command{
	Use:   "frompdf <file.pdf>",
	Short: "Draft a reference from a PDF",
	Long: `Draft a bibliography entry from a PDF by scanning its leading pages for
a DOI and a title. Author and year are left empty for the user to fill in.`,
	Args: cobra.ExactArgs(1),
	RunE: runBibFromPDF,
}

func runBibFromPDF(cmd *cobra.Command, args []string) error {
	ref, err := pdfref.NewReference(args[0])
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	if bibFromPDFAdd {
		root := mustFindWorkspace()
		kv := mustOpenStore(root)
		defer kv.Close()
		drafts := newDraftStore(kv)

		d := mustLoadDraft(drafts)
		d.References = append(d.References, ref)
		if err := drafts.Save(d); err != nil {
			exitWithError(ExitError, "saving draft: %v", err)
		}
	}

	if humanOutput {
		outputHuman("%s", bibtex.Serialize(ref))
		return nil
	}
	return outputJSON(ref)
}
