package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bundlecrypt/bundlecrypt"
)

var masterDataCmd = &cobra.Command{
	Use:   "masterdata",
	Short: "Decrypt the master data blob",
	Long: `Masterdata decrypts the AES-256-CBC master data snapshot that ships
separately from the asset bundles. The key and IV are hex encoded.`,
	RunE: runMasterData,
}

func init() {
	masterDataCmd.Flags().String("key", "", "hex-encoded 32-byte key (required)")
	masterDataCmd.Flags().String("iv", "", "hex-encoded 16-byte IV (required)")
	masterDataCmd.Flags().String("in", "", "encrypted blob path (required)")
	masterDataCmd.Flags().String("out", "masterdata.bin", "decrypted output path")
	masterDataCmd.MarkFlagRequired("key")
	masterDataCmd.MarkFlagRequired("iv")
	masterDataCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(masterDataCmd)
}

func runMasterData(cmd *cobra.Command, args []string) error {
	keyHex, _ := cmd.Flags().GetString("key")
	ivHex, _ := cmd.Flags().GetString("iv")
	inPath, _ := cmd.Flags().GetString("in")
	outPath, _ := cmd.Flags().GetString("out")

	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return fmt.Errorf("invalid key: %w", err)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return fmt.Errorf("invalid IV: %w", err)
	}

	blob, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}

	plaintext, err := bundlecrypt.DecryptMasterData(key, iv, blob)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, plaintext, 0644); err != nil {
		return err
	}
	newLogger().Info("master data decrypted", "in", inPath, "out", outPath, "bytes", len(plaintext))
	return nil
}
