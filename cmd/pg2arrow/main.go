// Copyright 2024 The pg2arrow-go Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	arrow "github.com/heterodb/pg2arrow-go"
)

var (
	verbose     bool
	pgHost      string
	pgPort      int
	pgDatabase  string
	pgUser      string
	pgPassword  string
	pgQuery     string
	outputPath  string
	segmentSize int64
)

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func dsn() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		pgHost, pgPort, pgDatabase, pgUser, pgPassword)
}

func runConvert(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	query, _ := cmd.Flags().GetString("query")
	output, _ := cmd.Flags().GetString("output")
	segSize, _ := cmd.Flags().GetInt64("segment-size")

	db, err := sql.Open("postgres", dsn())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(query)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	defer rows.Close()

	src, err := newSQLRowSource(rows)
	if err != nil {
		return fmt.Errorf("describing result columns: %w", err)
	}

	w, err := arrow.Open(arrow.Config{
		OutputPath:  output,
		SegmentSize: segSize,
		Logger:      logger,
	}, src.columns)
	if err != nil {
		return fmt.Errorf("opening output file: %w", err)
	}

	n := 0
	for {
		row, ok, err := src.Next()
		if err != nil {
			w.Close()
			return fmt.Errorf("reading row %d: %w", n, err)
		}
		if !ok {
			break
		}
		if err := w.Append(row); err != nil {
			w.Close()
			return fmt.Errorf("appending row %d: %w", n, err)
		}
		n++
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	logger.Info().Int("rows", n).Str("output", output).Msg("conversion complete")
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	r, err := arrow.OpenReader(args[0], arrow.ReaderOptions{Logger: logger})
	if err != nil {
		return fmt.Errorf("opening arrow file: %w", err)
	}
	defer r.Close()

	fmt.Printf("fields: %d\n", len(r.Schema.Fields))
	for _, f := range r.Schema.Fields {
		fmt.Printf("  %-20s type=%-3d nullable=%v\n", f.Name, f.Type.Tag, f.Nullable)
	}
	fmt.Printf("record batches: %d\n", len(r.RecordBatches))
	for i, blk := range r.RecordBatches {
		length, nodes, buffers, err := r.RecordBatchAt(blk)
		if err != nil {
			return fmt.Errorf("decoding record batch %d: %w", i, err)
		}
		fmt.Printf("  batch %d: rows=%d nodes=%d buffers=%d\n", i, length, len(nodes), len(buffers))
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "pg2arrow",
		Short: "Converts PostgreSQL query results into Apache Arrow IPC files",
		Long:  "pg2arrow streams the binary result rows of a PostgreSQL query into a columnar Apache Arrow IPC file",
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("pg2arrow-go 0.1.0")
		},
	}

	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Run a query and write its result as an Arrow IPC file",
		RunE:  runConvert,
	}

	dumpCmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Print a summary of an Arrow IPC file's schema and record batches",
		Args:  cobra.ExactArgs(1),
		RunE:  runDump,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose (debug level) logging")

	convertCmd.Flags().StringVar(&pgHost, "host", "localhost", "PostgreSQL server host")
	convertCmd.Flags().IntVar(&pgPort, "port", 5432, "PostgreSQL server port")
	convertCmd.Flags().StringVar(&pgDatabase, "dbname", "", "database name")
	convertCmd.Flags().StringVar(&pgUser, "user", "", "connection user")
	convertCmd.Flags().StringVar(&pgPassword, "password", "", "connection password")
	convertCmd.Flags().StringVar(&pgQuery, "query", "", "SQL query to execute")
	convertCmd.Flags().StringVarP(&outputPath, "output", "o", "output.arrow", "output file path")
	convertCmd.Flags().Int64Var(&segmentSize, "segment-size", 0, "approximate bytes per record batch (0 = default)")
	convertCmd.MarkFlagRequired("dbname")
	convertCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(versionCmd, convertCmd, dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
