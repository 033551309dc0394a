package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/peterbourgon/ff/v4"

	"github.com/dvloznov/fatura-itau/internal/domain"
	"github.com/dvloznov/fatura-itau/internal/export"
	"github.com/dvloznov/fatura-itau/internal/gcsuploader"
	"github.com/dvloznov/fatura-itau/internal/normalize"
	"github.com/dvloznov/fatura-itau/internal/pdftext"
	"github.com/dvloznov/fatura-itau/internal/pipeline"
	"github.com/dvloznov/fatura-itau/internal/statement"
)

const ingestTimeout = 5 * time.Minute

func (a *app) converter() (*pipeline.Converter, error) {
	opts, err := a.cfg.ParserOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, statement.WithLogger(a.log))
	return &pipeline.Converter{
		Extractor: pdftext.NewExtractor(a.cfg.Password),
		Parser:    statement.NewParser(opts...),
	}, nil
}

func (a *app) convertCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("convert").SetParent(parent)
	outDir := fs.StringLong("out-dir", "", "directory for output files (default: next to each PDF)")
	merge := fs.StringLong("merge", "", "write every statement into this one file, with an Arquivo_Origem column")

	return &ff.Command{
		Name:      "convert",
		Usage:     "fatura convert [flags] <pdf>...",
		ShortHelp: "convert statements to CSV, TSV or XLSX",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: at least one PDF is required", errUsage)
			}
			ctx, err := a.setup(ctx)
			if err != nil {
				return err
			}
			conv, err := a.converter()
			if err != nil {
				return err
			}

			convs, failed := conv.ConvertFiles(ctx, args)
			format := a.cfg.OutputFormat()

			if *merge != "" {
				if len(convs) > 0 {
					docs := pipeline.Documents(convs)
					if err := writeExport(*merge, format, docs, export.Options{WithSource: true}); err != nil {
						return err
					}
					fmt.Printf("%s: %d transações, total R$ %s\n", *merge, countRecords(docs), normalize.FormatValue(export.Total(docs...)))
				}
			} else {
				converted := succeeded(args, failed)
				for i, c := range convs {
					dir := *outDir
					if dir == "" {
						dir = filepath.Dir(converted[i])
					}
					path := filepath.Join(dir, export.OutputName(c.Document.Source, format))
					if err := writeExport(path, format, []export.Document{c.Document}, export.Options{}); err != nil {
						return err
					}
					fmt.Printf("%s: %d transações, total R$ %s\n", path, len(c.Document.Records), normalize.FormatValue(export.Total(c.Document)))
				}
			}

			if len(failed) > 0 {
				return fmt.Errorf("%d of %d files failed: %v", len(failed), len(args), failedNames(failed))
			}
			return nil
		},
	}
}

func (a *app) previewCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("preview").SetParent(parent)

	return &ff.Command{
		Name:      "preview",
		Usage:     "fatura preview <pdf>",
		ShortHelp: "print the transaction table as TSV",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: exactly one PDF is required", errUsage)
			}
			ctx, err := a.setup(ctx)
			if err != nil {
				return err
			}
			conv, err := a.converter()
			if err != nil {
				return err
			}

			c, err := conv.ConvertFile(ctx, args[0])
			if err != nil {
				return err
			}
			if err := export.WriteDelimited(os.Stdout, '\t', []export.Document{c.Document}, export.Options{OmitBOM: true}); err != nil {
				return err
			}
			fmt.Printf("\n%d transações, vencimento %s, total R$ %s\n",
				len(c.Document.Records), domain.FormatDate(c.Result.DueDate), normalize.FormatValue(export.Total(c.Document)))
			return nil
		},
	}
}

func (a *app) ingestCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("ingest").SetParent(parent)
	ensure := fs.BoolLong("ensure-tables", "create missing BigQuery tables first")

	return &ff.Command{
		Name:      "ingest",
		Usage:     "fatura ingest [flags] <gs://bucket/path.pdf>...",
		ShortHelp: "run the cloud pipeline for statements in Cloud Storage",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: at least one gs:// URI is required", errUsage)
			}
			for _, uri := range args {
				if _, _, err := gcsuploader.ParseURI(uri); err != nil {
					return err
				}
			}
			ctx, err := a.setup(ctx)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(ctx, ingestTimeout)
			defer cancel()

			deps, err := pipeline.NewCloudDeps(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			if *ensure {
				if err := deps.EnsureTables(ctx); err != nil {
					return err
				}
			}

			failed := 0
			for _, uri := range args {
				a.log.Info().Str("gcs_uri", uri).Msg("Starting ingestion")
				state, err := pipeline.IngestStatementFromGCSWithDeps(ctx, uri, &deps.Deps)
				if err != nil {
					failed++
					continue
				}
				fmt.Printf("%s: document %s, %d transações\n", uri, state.DocumentID, len(state.Result.Records))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d statements failed", failed, len(args))
			}
			return nil
		},
	}
}

func (a *app) uploadCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("upload").SetParent(parent)

	return &ff.Command{
		Name:      "upload",
		Usage:     "fatura upload <pdf>...",
		ShortHelp: "upload statements to the configured bucket and print their URIs",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: at least one PDF is required", errUsage)
			}
			ctx, err := a.setup(ctx)
			if err != nil {
				return err
			}
			if a.cfg.Bucket == "" {
				return fmt.Errorf("bucket is required")
			}

			storage, err := gcsuploader.NewGCSStorageService(ctx)
			if err != nil {
				return err
			}
			defer storage.Close()

			for _, path := range args {
				object := gcsuploader.ObjectName(a.cfg.UploadPrefix, time.Now().Format("2006/01"), path)
				uri, err := gcsuploader.UploadFile(ctx, storage, a.cfg.Bucket, object, path)
				if err != nil {
					return err
				}
				a.log.Info().Str("file", path).Str("gcs_uri", uri).Msg("Uploaded")
				fmt.Println(uri)
			}
			return nil
		},
	}
}

func writeExport(path string, f export.Format, docs []export.Document, opts export.Options) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.Write(out, f, docs, opts); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return out.Close()
}

func countRecords(docs []export.Document) int {
	n := 0
	for _, d := range docs {
		n += len(d.Records)
	}
	return n
}

// succeeded returns the paths missing from failed, in argument order, which
// is the order ConvertFiles returns its conversions in.
func succeeded(paths []string, failed map[string]error) []string {
	var out []string
	for _, p := range paths {
		if _, ok := failed[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

func failedNames(failed map[string]error) []string {
	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
