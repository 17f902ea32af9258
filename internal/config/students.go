package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadStudents reads one student id per line from path ("-" reads stdin).
func LoadStudents(path string) ([]string, error) {
	if path == "-" {
		return ParseStudents(os.Stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only student list.
			_ = cerr
		}
	}()
	return ParseStudents(file)
}

// ParseStudents splits newline-separated ids, trimming blanks. Input order
// is kept.
func ParseStudents(r io.Reader) ([]string, error) {
	var students []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		students = append(students, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, fmt.Errorf("student list is empty")
	}
	return students, nil
}
