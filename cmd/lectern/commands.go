package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"lectern/internal/config"
	models "lectern/internal/domain/models/resource"
	resourceSvc "lectern/internal/domain/services/resource"
	"lectern/internal/repository/postgres"
	resourceService "lectern/internal/service/resource"
)

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "upload a file, a directory tree, or a zip archive",
		ArgsUsage: "<source>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "target folder (default: course root)"},
			&cli.BoolFlag{Name: "overwrite", Usage: "replace existing files"},
			&cli.BoolFlag{Name: "unzip", Usage: "expand a zip archive instead of uploading it"},
			&cli.BoolFlag{Name: "empty-dirs", Usage: "create folders for empty directories"},
		},
		Action: withApp(runUpload),
	}
}

func runUpload(ctx context.Context, cmd *cli.Command, a *app) error {
	src := cmd.Args().First()
	if src == "" {
		return errors.New("upload needs a source path")
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	folder := cmd.String("folder")
	overwrite := cmd.Bool("overwrite")
	progress := newProgressPrinter(os.Stderr)

	var result *models.UploadResult
	switch {
	case info.IsDir() || cmd.Bool("unzip"):
		entries, closeFn, err := localEntries(ctx, src, info)
		if err != nil {
			return err
		}
		defer closeFn()

		result, err = a.services.Upload.UploadEntries(ctx, &resourceSvc.UploadEntriesRequest{
			CourseID:         a.courseID,
			FolderPath:       folder,
			Entries:          entries,
			Overwrite:        overwrite,
			IncludeEmptyDirs: cmd.Bool("empty-dirs"),
			OnProgress:       progress.update,
		})
		if err != nil {
			return err
		}

	default:
		result, err = a.services.Upload.Upload(ctx, &resourceSvc.UploadRequest{
			CourseID:   a.courseID,
			FolderPath: folder,
			Files: []resourceSvc.UploadedFile{{
				Name: filepath.Base(src),
				Size: info.Size(),
				Source: resourceSvc.FileSourceFunc(func() (io.ReadCloser, error) {
					return os.Open(src)
				}),
			}},
			Overwrite:  overwrite,
			OnProgress: progress.update,
		})
		if err != nil {
			return err
		}
	}

	fmt.Printf("uploaded %d of %d files (%s)\n",
		result.Summary.Uploaded,
		result.Summary.TotalFiles,
		humanize.IBytes(uint64(result.Summary.UploadedBytes)),
	)
	for _, f := range result.Folders {
		fmt.Printf("  + %s/\n", f)
	}
	for _, e := range result.Errors {
		fmt.Printf("  ! %s: %s\n", e.Path, e.Error)
	}
	if result.Summary.Failed > 0 {
		return fmt.Errorf("%d files failed", result.Summary.Failed)
	}
	return nil
}

// localEntries opens a directory (keeping its name) or a zip archive as drop entries
func localEntries(ctx context.Context, src string, info os.FileInfo) ([]resourceSvc.Entry, func(), error) {
	if info.IsDir() {
		abs, err := filepath.Abs(src)
		if err != nil {
			return nil, nil, err
		}
		entry, err := resourceService.FSEntry(os.DirFS(filepath.Dir(abs)), filepath.Base(abs))
		if err != nil {
			return nil, nil, err
		}
		return []resourceSvc.Entry{entry}, func() {}, nil
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, nil, err
	}
	entries, err := resourceService.ZipEntries(ctx, f, info.Size())
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return entries, func() { f.Close() }, nil
}

func treeCommand() *cli.Command {
	return &cli.Command{
		Name:  "tree",
		Usage: "print the course tree",
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			nodes, err := a.services.Tree.Tree(ctx, a.courseID)
			if err != nil {
				return err
			}
			printTree(os.Stdout, nodes, "")
			return nil
		}),
	}
}

func lsCommand() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "list a folder's direct children",
		ArgsUsage: "[folder]",
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			children, err := a.services.Tree.Browse(ctx, a.courseID, cmd.Args().First())
			if err != nil {
				return err
			}
			for _, rec := range children {
				fmt.Println(formatRecord(rec))
			}
			return nil
		}),
	}
}

func mkdirCommand() *cli.Command {
	return &cli.Command{
		Name:      "mkdir",
		Usage:     "create a folder and any missing parents",
		ArgsUsage: "<path>",
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			path := resourceService.Normalize(cmd.Args().First())
			if path == "" {
				return errors.New("mkdir needs a path")
			}
			folder, err := a.services.Folder.CreateFolder(ctx, &resourceSvc.CreateFolderRequest{
				CourseID:   a.courseID,
				ParentPath: resourceService.ParentOf(path),
				Name:       resourceService.BaseName(path),
			})
			if err != nil {
				return err
			}
			fmt.Printf("created %s/\n", folder.Path)
			return nil
		}),
	}
}

func dryRunFlag() cli.Flag {
	return &cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "show what would change"}
}

func renameCommand() *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "rename a file or folder in place",
		ArgsUsage: "<path> <new-name>",
		Flags:     []cli.Flag{dryRunFlag()},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			if cmd.NArg() != 2 {
				return errors.New("rename needs <path> <new-name>")
			}
			result, err := a.services.Mutation.Rename(ctx, &resourceSvc.RenameRequest{
				CourseID: a.courseID,
				Path:     cmd.Args().Get(0),
				Name:     cmd.Args().Get(1),
				DryRun:   cmd.Bool("dry-run"),
			})
			if err != nil {
				return err
			}
			return printCascade(os.Stdout, result)
		}),
	}
}

func mvCommand() *cli.Command {
	return &cli.Command{
		Name:      "mv",
		Usage:     "move a file or folder into another folder",
		ArgsUsage: "<path> <destination-folder>",
		Flags:     []cli.Flag{dryRunFlag()},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			if cmd.NArg() != 2 {
				return errors.New("mv needs <path> <destination-folder>")
			}
			result, err := a.services.Mutation.Move(ctx, &resourceSvc.MoveRequest{
				CourseID:    a.courseID,
				Path:        cmd.Args().Get(0),
				Destination: cmd.Args().Get(1),
				DryRun:      cmd.Bool("dry-run"),
			})
			if err != nil {
				return err
			}
			return printCascade(os.Stdout, result)
		}),
	}
}

func rmCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "delete a file, or a folder and everything under it",
		ArgsUsage: "<path>",
		Flags:     []cli.Flag{dryRunFlag()},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, a *app) error {
			result, err := a.services.Mutation.Delete(ctx, &resourceSvc.DeleteRequest{
				CourseID: a.courseID,
				Path:     cmd.Args().First(),
				DryRun:   cmd.Bool("dry-run"),
			})
			if err != nil {
				return err
			}
			return printCascade(os.Stdout, result)
		}),
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "print (or apply) the resource table DDL",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "apply", Usage: "run the DDL against SUPABASE_DB_URL"},
			&cli.BoolFlag{Name: "drop", Usage: "drop the resource table for the current TABLE_PREFIX"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Load()
			tables := postgres.NewTableNames(cfg.TablePrefix)

			if !cmd.Bool("apply") && !cmd.Bool("drop") {
				fmt.Print(postgres.Schema(tables))
				return nil
			}

			pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if cmd.Bool("drop") {
				if cfg.Environment == "prod" {
					return errors.New("refusing to drop tables in prod")
				}
				if err := postgres.DropSchema(ctx, pool, tables); err != nil {
					return err
				}
				fmt.Printf("dropped %s\n", tables.Resources)
				return nil
			}

			if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
				return err
			}
			fmt.Printf("schema applied (%s)\n", tables.Resources)
			return nil
		},
	}
}

// formatRecord renders one ls line
func formatRecord(rec models.ResourceRecord) string {
	if rec.IsFolder() {
		return rec.Name + "/"
	}
	size := "-"
	if rec.Size != nil {
		size = humanize.IBytes(uint64(*rec.Size))
	}
	return fmt.Sprintf("%-40s %10s", rec.Name, size)
}

func printTree(w io.Writer, nodes []*models.TreeNode, indent string) {
	for _, n := range nodes {
		fmt.Fprintf(w, "%s%s\n", indent, strings.TrimRight(formatRecord(n.ResourceRecord), " "))
		printTree(w, n.Children, indent+"  ")
	}
}

func printCascade(w io.Writer, result *models.CascadeResult) error {
	changes := result.Applied
	verb := "applied"
	if result.DryRun {
		changes = result.Planned
		verb = "planned"
	}

	fmt.Fprintf(w, "%s %s: %d changes %s\n", result.Operation, result.Root.From, len(changes), verb)
	for _, c := range changes {
		if c.To == "" {
			fmt.Fprintf(w, "  - %s\n", c.From)
		} else {
			fmt.Fprintf(w, "  %s -> %s\n", c.From, c.To)
		}
	}
	for _, f := range result.Failed {
		fmt.Fprintf(w, "  ! %s: %s\n", f.Path, f.Error)
	}

	if !result.OK() {
		return fmt.Errorf("%d items were not updated; re-run to finish", len(result.Failed))
	}
	return nil
}
