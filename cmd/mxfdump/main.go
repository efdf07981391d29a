// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"

	mxf "github.com/saferwall/mxf"
	"github.com/saferwall/mxf/log"
	"github.com/spf13/cobra"
)

func prettyPrint(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "\t"); err != nil {
		return string(raw)
	}
	return buf.String()
}

func openFile(path string, verbose, quiet bool, kagSize int) (*mxf.MXFFile, *log.Helper, error) {
	level := log.LevelWarn
	if verbose {
		level = log.LevelDebug
	}
	if quiet {
		level = log.LevelFatal
	}
	helper := log.NewHelper(log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(level)))

	f, err := mxf.Open(path, &mxf.Options{Logger: helper, KAGSize: uint32(kagSize)})
	return f, helper, err
}

func runDump(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	full, _ := cmd.Flags().GetBool("full")
	quiet, _ := cmd.Flags().GetBool("quiet")
	kagSize, _ := cmd.Flags().GetInt("kag")

	for _, path := range args {
		f, _, err := openFile(path, verbose, quiet, kagSize)
		if err != nil {
			stdlog.Printf("mxfdump: %s: %v", path, err)
			continue
		}

		rip, err := f.ScanRIP()
		if err == nil {
			fmt.Println(prettyPrint(rip.Entries()))
		} else if !quiet {
			stdlog.Printf("mxfdump: %s: no RIP found: %v", path, err)
		}

		partition, next, err := f.ReadPartitionAt(f.RunIn)
		if err != nil {
			stdlog.Printf("mxfdump: %s: %v", path, err)
			f.Close()
			continue
		}
		fmt.Println(prettyPrint(partition.Pack))

		if kagSize > 1 {
			essenceStart := next + int64(partition.Pack.HeaderByteCount) + int64(partition.Pack.IndexByteCount)
			gap, aligned := mxf.CheckKAGAlignment(f.RunIn, essenceStart, uint32(kagSize))
			if !aligned {
				fmt.Printf("%s: essence start misaligned to KAG=%d by %d bytes\n", path, kagSize, gap)
			}
		}

		if full {
			fmt.Println(prettyPrint(partition.AllMetadata))
		}

		f.Close()
	}
}

func runInfo(cmd *cobra.Command, args []string) {
	quiet, _ := cmd.Flags().GetBool("quiet")
	kagSize, _ := cmd.Flags().GetInt("kag")
	for _, path := range args {
		f, _, err := openFile(path, false, quiet, kagSize)
		if err != nil {
			stdlog.Printf("mxfdump: %s: %v", path, err)
			continue
		}
		rip, err := f.ScanRIP()
		count := 0
		if err == nil {
			count = rip.Len()
		}
		fmt.Printf("%s: size=%d run-in=%d partitions=%d\n", path, f.Size(), f.RunIn, count)
		f.Close()
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "mxfdump",
		Short: "An MXF (SMPTE 377M) container inspector",
		Long:  "A container-structure dumper for MXF files, built for speed and format diagnostics.",
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-fatal diagnostics")
	rootCmd.PersistentFlags().IntP("kag", "k", 0, "KAG size used to open the file and flag essence-start misalignment")

	dumpCmd := &cobra.Command{
		Use:   "dump [files...]",
		Short: "Dump the RIP entries and the first partition pack as JSON",
		Run:   runDump,
	}
	dumpCmd.Flags().BoolP("full", "f", false, "Also print the first partition's metadata object list (header metadata is not read, so it is empty); index entries are not dumped")

	infoCmd := &cobra.Command{
		Use:   "info [files...]",
		Short: "One-line-per-file summary: size, run-in and RIP partition count",
		Run:   runInfo,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("You are using version 0.1.0")
		},
	}

	rootCmd.AddCommand(dumpCmd, infoCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
