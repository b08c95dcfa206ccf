package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"zipcrack/internal/crackerr"
	"zipcrack/internal/engine"
	"zipcrack/internal/tui"
	"zipcrack/internal/zipscan"
)

func newDictionaryCmd() *cobra.Command {
	var dictPath string

	cmd := &cobra.Command{
		Use:   "dictionary [flags] FILE",
		Short: "Try candidate passwords from a word list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, err := zipscan.Open(args[0])
			if err != nil {
				return crackerr.Wrap(crackerr.IO, err)
			}
			defer arc.Close()

			vdata := arc.ValidationData()
			target, ok := arc.SmallestEncrypted()
			if !ok {
				return crackerr.Wrap(crackerr.ArchiveFormat, fmt.Errorf("no ZipCrypto-encrypted entry found"))
			}

			wordlist := os.Stdin
			if dictPath != "" {
				f, err := os.Open(dictPath)
				if err != nil {
					return crackerr.Wrap(crackerr.IO, err)
				}
				defer f.Close()
				wordlist = f
			}

			sess := engine.RunDict(context.Background(), engine.DictConfig{
				VData:    vdata,
				Verifier: zipscan.NewEntryVerifier(target),
				Wordlist: wordlist,
			})

			model := tui.NewModel(tui.Config{
				Label:       "dictionary",
				Workers:     1,
				SampleEvery: 2 * time.Second,
				StatsCh:     sess.StatsCh(),
				ResultCh:    sess.ResultCh(),
			})
			if _, err := tea.NewProgram(model).Run(); err != nil {
				return err
			}

			res := sess.GetResult()
			if !res.Found {
				return crackerr.Wrap(crackerr.NotFound, fmt.Errorf("wordlist exhausted"))
			}
			fmt.Printf("password: %s\n", tui.FormatPassword(res.Password))
			return nil
		},
	}

	cmd.Flags().StringVar(&dictPath, "dictionary", "", "word list file (default: stdin)")
	return cmd
}
