package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	tea "github.com/charmbracelet/bubbletea"

	"zipcrack/internal/charset"
	"zipcrack/internal/crackerr"
	"zipcrack/internal/engine"
	"zipcrack/internal/tui"
	"zipcrack/internal/zipscan"
)

func newBruteforceCmd() *cobra.Command {
	var (
		customSet     string
		useLower      bool
		useUpper      bool
		useDigits     bool
		useCommon     bool
		useSpecialAll bool
		maxLen        int
		initial       string
		threads       int
		showStats     bool
	)

	cmd := &cobra.Command{
		Use:   "bruteforce [flags] FILE",
		Short: "Exhaustively enumerate passwords over a character set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := buildCharset(customSet, useLower, useUpper, useDigits, useCommon, useSpecialAll)
			if threads <= 0 {
				threads = runtime.NumCPU()
			}

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

			start := time.Now()
			sess := engine.RunBruteforce(context.Background(), engine.BruteforceConfig{
				VData:    vdata,
				Verifier: zipscan.NewEntryVerifier(target),
				Charset:  set,
				Initial:  []byte(initial),
				MaxLen:   maxLen,
			}, threads)

			model := tui.NewModel(tui.Config{
				Label:       "bruteforce",
				Workers:     threads,
				SampleEvery: 2 * time.Second,
				StatsCh:     sess.StatsCh(),
				ResultCh:    sess.ResultCh(),
				AlphabetLen: len(set),
				MinLen:      1,
				MaxLen:      maxLen,
			})
			if _, err := tea.NewProgram(model).Run(); err != nil {
				return err
			}

			res := sess.GetResult()
			if showStats {
				fmt.Printf("elapsed: %s\n", time.Since(start).Truncate(time.Second))
			}
			if !res.Found {
				return crackerr.Wrap(crackerr.NotFound, fmt.Errorf("password space exhausted"))
			}
			fmt.Printf("password: %s\n", tui.FormatPassword(res.Password))
			return nil
		},
	}

	cmd.Flags().StringVar(&customSet, "charset", "", "explicit character set")
	cmd.Flags().BoolVarP(&useLower, "lower", "a", false, "include a-z")
	cmd.Flags().BoolVarP(&useUpper, "upper", "A", false, "include A-Z")
	cmd.Flags().BoolVarP(&useDigits, "digits", "n", false, "include 0-9")
	cmd.Flags().BoolVarP(&useCommon, "special", "s", false, "include common special characters")
	cmd.Flags().BoolVar(&useSpecialAll, "special-all", false, "include all printable ASCII punctuation")
	cmd.Flags().IntVar(&maxLen, "length", 8, "maximum password length (1-16)")
	cmd.Flags().StringVar(&initial, "initial", "", "starting password (must be in the charset)")
	cmd.Flags().IntVar(&threads, "threads", 0, "worker count (0 = auto)")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print wall-clock runtime")

	return cmd
}

func buildCharset(custom string, lower, upper, digits, common, specialAll bool) []byte {
	if custom != "" {
		return []byte(custom)
	}
	var sets [][]byte
	if lower {
		sets = append(sets, charset.Lowercase())
	}
	if upper {
		sets = append(sets, charset.Uppercase())
	}
	if digits {
		sets = append(sets, charset.Digits())
	}
	if common {
		sets = append(sets, charset.SpecialCommon())
	}
	if specialAll {
		sets = append(sets, charset.SpecialAll())
	}
	if len(sets) == 0 {
		sets = append(sets, charset.Lowercase(), charset.Uppercase())
	}
	return charset.Combine(sets...)
}
