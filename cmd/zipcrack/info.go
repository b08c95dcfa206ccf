package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"zipcrack/internal/zipscan"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "List a ZIP archive's entries and their ZipCrypto metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, err := zipscan.Open(args[0])
			if err != nil {
				return err
			}
			defer arc.Close()

			for _, e := range arc.Entries {
				fmt.Printf("%s\n", e.Name)
				fmt.Printf("  compressed=%d uncompressed=%d crc32=%08x method=%d\n",
					e.CompressedSize, e.UncompressedSize, e.CRC32, e.CompressionMethod)
				fmt.Printf("  encrypted=%v data-descriptor=%v", e.IsEncrypted(), e.GPFlag&0x8 != 0)
				if e.IsEncrypted() {
					fmt.Printf(" magic=0x%02x header=%x", e.CheckByte(), e.Ciphertext[:12])
				}
				fmt.Println()
			}
			return nil
		},
	}
}
