package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"StudyVault/internal/cli/api"
	"StudyVault/internal/config"
)

type uploadCmd struct{}

func (uploadCmd) Name() string        { return "upload" }
func (uploadCmd) Description() string { return "Upload a PDF as a new note" }
func (uploadCmd) Usage() string {
	return "upload <file.pdf> <title> <category> [description]"
}

func (uploadCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return ErrUsage
	}
	tok, err := token(cfg)
	if err != nil {
		return err
	}
	fields := map[string]string{"title": args[1], "category": args[2]}
	if len(args) == 4 {
		fields["description"] = args[3]
	}
	var n note
	if err := api.UploadPDF(ctx, endpoint(cfg, "notes", "upload"), fields, args[0], tok, &n); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Uploaded %s: %s\n", n.ID, n.ShareLink)
	return nil
}

type editCmd struct{}

func (editCmd) Name() string        { return "edit" }
func (editCmd) Description() string { return "Edit note metadata (title, description, category, order)" }
func (editCmd) Usage() string       { return "edit <id> field=value..." }

func (editCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return ErrUsage
	}
	patch := map[string]any{}
	for _, kv := range args[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return ErrUsage
		}
		switch k {
		case "title", "description", "category":
			patch[k] = v
		case "order":
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("order must be an integer: %q", v)
			}
			patch[k] = n
		default:
			return fmt.Errorf("unknown field %q", k)
		}
	}
	tok, err := token(cfg)
	if err != nil {
		return err
	}
	var n note
	if err := api.PutJSON(ctx, endpoint(cfg, "notes", args[0]), patch, tok, &n); err != nil {
		return err
	}
	printNote(Out, n)
	return nil
}

type deleteCmd struct{}

func (deleteCmd) Name() string        { return "delete" }
func (deleteCmd) Description() string { return "Delete a note and its PDF" }
func (deleteCmd) Usage() string       { return "delete <id>" }

func (deleteCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	tok, err := token(cfg)
	if err != nil {
		return err
	}
	if err := api.Delete(ctx, endpoint(cfg, "notes", args[0]), tok, nil); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Deleted %s\n", args[0])
	return nil
}

type downloadCmd struct{}

func (downloadCmd) Name() string        { return "download" }
func (downloadCmd) Description() string { return "Download a note PDF by file id" }
func (downloadCmd) Usage() string       { return "download <file-id> [out.pdf]" }

func (downloadCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	dst := args[0] + ".pdf"
	if len(args) == 2 {
		dst = args[1]
	}
	n, err := api.Download(ctx, endpoint(cfg, "pdf", args[0]), "", filepath.Clean(dst))
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Saved %s (%d bytes)\n", dst, n)
	return nil
}

func init() {
	RegisterCmd(uploadCmd{})
	RegisterCmd(editCmd{})
	RegisterCmd(deleteCmd{})
	RegisterCmd(downloadCmd{})
}
