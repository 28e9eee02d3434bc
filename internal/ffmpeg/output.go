package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/eleven-am/goclip/internal/domain"
)

const (
	DefaultPrefix = "goclip"
	DefaultFormat = "mp4"
	stampLayout   = "20060102_150405"
)

var suffixes = map[domain.OpKind]string{
	domain.OpCut:         "_cut",
	domain.OpSpeed:       "_speed",
	domain.OpRotate:      "_rotated",
	domain.OpFilter:      "_filtered",
	domain.OpText:        "_text",
	domain.OpAudio:       "_audio",
	domain.OpCrop:        "_cropped",
	domain.OpExport:      "_export",
	domain.OpConcatenate: "_merged",
}

func Suffix(kind domain.OpKind) string {
	return suffixes[kind]
}

// Namer issues output paths of the form <prefix>_<YYYYMMDD_HHmmss><suffix>.<format>.
// Names repeated within the same second get a _2, _3, ... counter so two
// operations never share an output file.
type Namer struct {
	dir    string
	prefix string
	now    func() time.Time

	mu     sync.Mutex
	issued map[string]int
}

func NewNamer(dir, prefix string) *Namer {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Namer{
		dir:    dir,
		prefix: prefix,
		now:    time.Now,
		issued: make(map[string]int),
	}
}

func (n *Namer) Dir() string {
	return n.dir
}

func (n *Namer) Path(kind domain.OpKind, format string) string {
	format = strings.TrimPrefix(strings.TrimSpace(format), ".")
	if format == "" {
		format = DefaultFormat
	}

	base := fmt.Sprintf("%s_%s%s", n.prefix, n.now().Format(stampLayout), Suffix(kind))

	n.mu.Lock()
	n.issued[base]++
	count := n.issued[base]
	n.mu.Unlock()

	if count > 1 {
		base = fmt.Sprintf("%s_%d", base, count)
	}

	return filepath.Join(n.dir, base+"."+format)
}
