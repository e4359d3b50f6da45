package braidproto

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Separator ends every update in a subscription stream.
const Separator = "\r\n\r\n\r\n\r\n\r\n"

// Write encodes u onto a subscription stream: a full body when u has no
// patches, otherwise a "Patches" block.
func Write(w io.Writer, u Update) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Version: %s\r\n", strings.Join(u.Version, ", "))
	fmt.Fprintf(bw, "Parents: %s\r\n", strings.Join(u.Parents, ", "))

	if len(u.Patches) == 0 {
		fmt.Fprintf(bw, "Content-Length: %d\r\n", len(u.Body))
		fmt.Fprintf(bw, "\r\n")
		bw.Write(u.Body)
	} else {
		fmt.Fprintf(bw, "Patches: %d\r\n\r\n", len(u.Patches))
		for i, p := range u.Patches {
			if i > 0 {
				fmt.Fprintf(bw, "\r\n\r\n")
			}
			fmt.Fprintf(bw, "Content-Length: %d\r\n", len(p.Content))
			fmt.Fprintf(bw, "Content-Range: %s %s\r\n", p.Unit, p.Range)
			fmt.Fprintf(bw, "\r\n")
			bw.WriteString(p.Content)
		}
	}

	bw.WriteString(Separator)
	return bw.Flush()
}
