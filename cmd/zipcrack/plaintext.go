package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"zipcrack/internal/cipher"
	"zipcrack/internal/crackerr"
	"zipcrack/internal/engine"
	"zipcrack/internal/ptext"
	"zipcrack/internal/tui"
)

func newPlaintextCmd() *cobra.Command {
	var (
		fromRep string
		offset  bool
		threads int
	)

	cmd := &cobra.Command{
		Use:   "plaintext [flags] PLAIN CIPHER",
		Short: "Run the known-plaintext attack given matching plaintext and ciphertext",
		Long: `plaintext recovers a password from known plaintext/ciphertext.

Default form: PLAIN CIPHER, where CIPHER is the entry's full encrypted
data (12-byte header followed by the encrypted body) and PLAIN is known
content aligned to the body's start.

With --offset: PLAIN BEGIN END CIPHER BEGIN END CIPHER_FIRST_BYTE takes
independent half-open byte ranges [BEGIN, END) into the plaintext and
ciphertext files (they need not share an offset or even live at the
same position in their files) plus CIPHER_FIRST_BYTE, a hex byte that
must match the ciphertext at its BEGIN offset — a sanity check against
an off-by-one in the supplied range.

With --password-from-internal-rep K0 K1 K2 (hex), password recovery runs
directly against that internal representation, skipping the attack.`,
		Args: cobra.RangeArgs(0, 7),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromRep != "" {
				return runFromInternalRep(fromRep, args)
			}
			return runPlaintextAttack(args, offset, threads)
		},
	}

	cmd.Flags().StringVar(&fromRep, "password-from-internal-rep", "", "K0 (hex); combine with positional K1 K2")
	cmd.Flags().BoolVar(&offset, "offset", false, "take PLAIN BEGIN END CIPHER BEGIN END CIPHER_FIRST_BYTE instead of PLAIN CIPHER")
	cmd.Flags().IntVar(&threads, "threads", 0, "worker count (0 = auto)")

	return cmd
}

func runFromInternalRep(k0hex string, args []string) error {
	if len(args) != 2 {
		return crackerr.Wrap(crackerr.InputShape, fmt.Errorf("--password-from-internal-rep needs K0 K1 K2"))
	}
	k0, err := parseHexUint32(k0hex)
	if err != nil {
		return crackerr.Wrap(crackerr.InputShape, err)
	}
	k1, err := parseHexUint32(args[0])
	if err != nil {
		return crackerr.Wrap(crackerr.InputShape, err)
	}
	k2, err := parseHexUint32(args[1])
	if err != nil {
		return crackerr.Wrap(crackerr.InputShape, err)
	}

	rep := cipher.Keys{K0: k0, K1: k1, K2: k2}
	pw, err := ptext.RecoverPassword(rep)
	if err != nil {
		return crackerr.Wrap(crackerr.NotFound, err)
	}
	fmt.Printf("internal rep: %08x %08x %08x\n", rep.K0, rep.K1, rep.K2)
	fmt.Printf("password: %s\n", tui.FormatPassword(pw))
	return nil
}

func parseHexUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(trimHexPrefix(s), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex value %q", s)
	}
	return uint32(v), nil
}

func trimHexPrefix(s string) string {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}

func runPlaintextAttack(args []string, offset bool, threads int) error {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	var plainPath, cipherPath string
	var plainBegin, plainEnd, cipherBegin, cipherEnd int = -1, -1, -1, -1
	var cipherFirstByte byte
	var haveCipherFirstByte bool

	switch {
	case offset && len(args) == 7:
		plainPath = args[0]
		pb, errPB := strconv.Atoi(args[1])
		pe, errPE := strconv.Atoi(args[2])
		cipherPath = args[3]
		cb, errCB := strconv.Atoi(args[4])
		ce, errCE := strconv.Atoi(args[5])
		if errPB != nil || errPE != nil || errCB != nil || errCE != nil || pb < 0 || pe <= pb || cb < 0 || ce <= cb {
			return crackerr.Wrap(crackerr.InputShape, fmt.Errorf("invalid BEGIN/END range"))
		}
		if pe-pb != ce-cb {
			return crackerr.Wrap(crackerr.InputShape, fmt.Errorf("plaintext/cipher span differs"))
		}
		fb, err := parseHexUint32(args[6])
		if err != nil || fb > 0xff {
			return crackerr.Wrap(crackerr.InputShape, fmt.Errorf("invalid CIPHER_FIRST_BYTE"))
		}
		plainBegin, plainEnd, cipherBegin, cipherEnd = pb, pe, cb, ce
		cipherFirstByte, haveCipherFirstByte = byte(fb), true
	case !offset && len(args) == 2:
		plainPath, cipherPath = args[0], args[1]
	default:
		return crackerr.Wrap(crackerr.InputShape, fmt.Errorf("wrong number of arguments for this form"))
	}

	plainBytes, err := os.ReadFile(plainPath)
	if err != nil {
		return crackerr.Wrap(crackerr.IO, err)
	}
	cipherBytes, err := os.ReadFile(cipherPath)
	if err != nil {
		return crackerr.Wrap(crackerr.IO, err)
	}

	var header []byte
	var body []byte

	if plainBegin >= 0 {
		if plainEnd > len(plainBytes) || cipherEnd > len(cipherBytes) {
			return crackerr.Wrap(crackerr.InputShape, fmt.Errorf("BEGIN/END range exceeds input length"))
		}
		if haveCipherFirstByte && cipherBytes[cipherBegin] != cipherFirstByte {
			return crackerr.Wrap(crackerr.InputShape, fmt.Errorf("CIPHER_FIRST_BYTE does not match ciphertext at BEGIN"))
		}
		plainBytes = plainBytes[plainBegin:plainEnd]
		body = cipherBytes[cipherBegin:cipherEnd]
	} else {
		if len(cipherBytes) < cipher.HeaderLen {
			return crackerr.Wrap(crackerr.ArchiveFormat, fmt.Errorf("ciphertext shorter than the encrypted header"))
		}
		header = append([]byte(nil), cipherBytes[:cipher.HeaderLen]...)
		body = cipherBytes[cipher.HeaderLen:]
	}

	n := len(plainBytes)
	if n > len(body) {
		n = len(body)
	}
	if n < ptext.MinKnownPlaintext {
		return crackerr.Wrap(crackerr.InputShape, fmt.Errorf("need at least %d bytes of known plaintext, got %d", ptext.MinKnownPlaintext, n))
	}

	sess := engine.RunPlaintext(context.Background(), engine.PlaintextConfig{
		Plaintext:  plainBytes[:n],
		Ciphertext: body[:n],
		Header:     header,
	}, threads)

	model := tui.NewModel(tui.Config{
		Label:       "plaintext",
		Workers:     threads,
		SampleEvery: 2 * time.Second,
		StatsCh:     sess.StatsCh(),
		ResultCh:    sess.ResultCh(),
	})
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return err
	}

	res := sess.GetResult()
	if !res.Found {
		return crackerr.Wrap(crackerr.NotFound, fmt.Errorf("no key2 candidate satisfied the known plaintext"))
	}
	fmt.Printf("internal rep: %08x %08x %08x\n", res.InternalRep.K0, res.InternalRep.K1, res.InternalRep.K2)
	if len(res.Password) > 0 {
		fmt.Printf("password: %s\n", tui.FormatPassword(res.Password))
	} else {
		fmt.Println("password length outside the recoverable range (1-6); internal representation recovered above")
	}
	return nil
}
