package gtfs

import (
	"bytes"
	"context"
	"io"
	"os"
)

// CountLines returns the number of lines in the file at path. A final line
// without a terminator still counts.
func CountLines(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	buf := make([]byte, 64*1024)
	var (
		lines int
		last  byte = '\n'
	)
	for {
		if err := ctx.Err(); err != nil {
			return lines, err
		}
		n, err := f.Read(buf)
		if n > 0 {
			lines += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return lines, err
		}
	}
	if last != '\n' {
		lines++
	}
	return lines, nil
}
