package file

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// Decoder returns the decoder for a transcript encoding name.
func Decoder(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", "_")) {
	case "", "utf_8", "utf8":
		return unicode.UTF8.NewDecoder(), nil
	case "shift_jis", "sjis", "shiftjis", "cp932":
		return japanese.ShiftJIS.NewDecoder(), nil
	case "euc_jp", "eucjp":
		return japanese.EUCJP.NewDecoder(), nil
	}
	return nil, goerr.New("unsupported transcript encoding", goerr.V("encoding", name))
}
