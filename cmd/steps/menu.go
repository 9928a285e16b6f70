package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"unicode"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/step.report/internal/export"
	"github.com/banshee-data/step.report/internal/fsutil"
	"github.com/banshee-data/step.report/internal/session"
)

const menuPrompt = "Menu Options:\n" +
	"A: Display the total number of steps\n" +
	"B: Display the steps time\n" +
	"C: Download Steps Record\n" +
	"Q: Quit\n" +
	"Enter choice: "

// readChoice returns the next non-space character, like scanf(" %c").
func readChoice(r *bufio.Reader) (rune, error) {
	for {
		c, _, err := r.ReadRune()
		if err != nil {
			return 0, err
		}
		if !unicode.IsSpace(c) {
			return c, nil
		}
	}
}

// runMenu loops over single-letter choices read from in until Q or end of
// input. current is called for each choice so a regenerated session is
// picked up between choices.
func runMenu(in io.Reader, out io.Writer, fsys fsutil.FileSystem, current func() *session.Session, csvPath string) error {
	r := bufio.NewReader(in)
	for {
		fmt.Fprint(out, menuPrompt)
		choice, err := readChoice(r)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}

		sess := current()
		switch choice {
		case 'A':
			fmt.Fprintf(out, "Total Steps Detected: %d\n", sess.TotalDetected())
			fmt.Fprintln(out, "------------------------")
		case 'B':
			for _, e := range sess.Steps() {
				fmt.Fprintf(out, "Step %d Detected At: %.3f second\n", e.Number(), e.Time)
			}
			fmt.Fprintln(out, "--------------------------------")
		case 'C':
			n, err := export.WriteCSVFile(fsys, csvPath, sess.Result.Events)
			if err != nil {
				return fmt.Errorf("download steps record: %w", err)
			}
			log.Printf("wrote %s (%s)", csvPath, humanize.Bytes(uint64(n)))
			fmt.Fprintf(out, "Data sorted and written to %s\n", csvPath)
			fmt.Fprintln(out, "-------------------------------------------")
		case 'Q':
			return nil
		default:
			fmt.Fprintln(out, "Invalid choice. Try again.")
		}
	}
}
