package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	errInvalidChoice = errors.New("Invalid choice! Exiting...")
	errVideoNotFound = errors.New("Error: Video file not found!")
)

type sourceKind int

const (
	sourceCamera sourceKind = iota
	sourceVideo
)

// selection is the capture source picked by flags or at the prompt.
type selection struct {
	kind sourceKind
	path string
}

// chooseSource resolves -source/-video and asks on in for anything missing.
func chooseSource(in io.Reader, out io.Writer, source, video string) (selection, error) {
	reader := bufio.NewReader(in)

	choice := strings.ToLower(strings.TrimSpace(source))
	if choice == "" {
		fmt.Fprint(out, "Enter '1' for Camera or '2' for Video: ")
		choice = readLine(reader)
	}

	switch choice {
	case "1", "camera":
		return selection{kind: sourceCamera}, nil
	case "2", "video":
	default:
		return selection{}, errInvalidChoice
	}

	path := strings.TrimSpace(video)
	if path == "" {
		fmt.Fprint(out, "Enter the path to the video file: ")
		path = readLine(reader)
	}
	if info, err := os.Stat(path); path == "" || err != nil || info.IsDir() {
		return selection{}, errVideoNotFound
	}
	return selection{kind: sourceVideo, path: path}, nil
}

func readLine(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
