package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"StudyVault/internal/cli/api"
	"StudyVault/internal/config"
)

type categoriesCmd struct{}

func (categoriesCmd) Name() string        { return "categories" }
func (categoriesCmd) Description() string { return "List categories that have notes" }
func (categoriesCmd) Usage() string       { return "categories" }

func (categoriesCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	var resp struct {
		Categories []string `json:"categories"`
	}
	if err := api.GetJSON(ctx, endpoint(cfg, "categories"), "", &resp); err != nil {
		return err
	}
	cats := resp.Categories
	if len(cats) == 0 {
		fmt.Fprintln(Out, "No categories")
		return nil
	}
	for _, c := range cats {
		fmt.Fprintln(Out, c)
	}
	return nil
}

type notesCmd struct{}

func (notesCmd) Name() string        { return "notes" }
func (notesCmd) Description() string { return "List notes with optional filter, search and sort" }
func (notesCmd) Usage() string {
	return "notes [-category <name>] [-search <text>] [-sort <key>]"
}

func (notesCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("notes", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	category := fs.String("category", "", "category filter")
	search := fs.String("search", "", "substring of title or description")
	sortBy := fs.String("sort", "", "date_desc, date_asc, name_asc, name_desc, category, custom")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return ErrUsage
	}

	q := url.Values{}
	if *category != "" {
		q.Set("category", *category)
	}
	if *search != "" {
		q.Set("search", *search)
	}
	if *sortBy != "" {
		q.Set("sort_by", *sortBy)
	}
	u := endpoint(cfg, "notes")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var list []note
	if err := api.GetJSON(ctx, u, "", &list); err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(Out, "No notes")
		return nil
	}
	tw := tabwriter.NewWriter(Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tTITLE\tLINK\tUPLOADED")
	for _, n := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s/%s\t%s\n", n.ID, n.Category, n.Title, n.CategorySlug, n.Slug, n.UploadDate)
	}
	return tw.Flush()
}

type noteCmd struct{}

func (noteCmd) Name() string        { return "note" }
func (noteCmd) Description() string { return "Show a note by id or by <category>/<slug>" }
func (noteCmd) Usage() string       { return "note <id>|<category>/<slug>" }

func (noteCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return ErrUsage
	}
	u := endpoint(cfg, "notes", args[0])
	// slug не содержит "/", а slug категории может: режем по последнему разделителю
	if i := strings.LastIndex(args[0], "/"); i >= 0 {
		cs, s := args[0][:i], args[0][i+1:]
		if cs == "" || s == "" {
			return ErrUsage
		}
		u = endpoint(cfg, "notes", "by-link", cs, s)
	}
	var n note
	if err := api.GetJSON(ctx, u, "", &n); err != nil {
		return err
	}
	printNote(Out, n)
	return nil
}

func printNote(w io.Writer, n note) {
	fmt.Fprintf(w, "ID:          %s\n", n.ID)
	fmt.Fprintf(w, "Title:       %s\n", n.Title)
	fmt.Fprintf(w, "Category:    %s\n", n.Category)
	if n.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", n.Description)
	}
	fmt.Fprintf(w, "Order:       %d\n", n.Order)
	fmt.Fprintf(w, "Uploaded:    %s\n", n.UploadDate)
	fmt.Fprintf(w, "PDF:         %s (%s)\n", n.PDFFileID, n.PDFFilename)
	fmt.Fprintf(w, "Link:        %s\n", n.ShareLink)
}

func init() {
	RegisterCmd(categoriesCmd{})
	RegisterCmd(notesCmd{})
	RegisterCmd(noteCmd{})
}
