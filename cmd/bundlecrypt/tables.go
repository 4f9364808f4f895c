package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bundlecrypt/bundlecrypt"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Extract a table archive into per-table files",
	Long: `Tables decodes a MessagePack table archive (typically the decrypted
master data snapshot) and writes each table to its own file below the
output directory.`,
	RunE: runTables,
}

func init() {
	tablesCmd.Flags().String("in", "", "table archive path (required)")
	tablesCmd.Flags().StringP("output", "o", "master", "output directory")
	tablesCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(tablesCmd)
}

func runTables(cmd *cobra.Command, args []string) error {
	inPath, _ := cmd.Flags().GetString("in")
	outDir, _ := cmd.Flags().GetString("output")

	blob, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}

	archive, err := bundlecrypt.ParseTableArchive(blob)
	if err != nil {
		return err
	}

	outputFS, err := newRootedFS(outDir)
	if err != nil {
		return err
	}
	if err := bundlecrypt.ExtractTables(outputFS, "/", archive); err != nil {
		return err
	}

	newLogger().Info("tables extracted", "tables", len(archive), "dir", outDir)
	return nil
}
